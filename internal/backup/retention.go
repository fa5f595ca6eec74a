package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Info holds metadata for retention decisions.
type Info struct {
	Path      string
	Size      int64
	CreatedAt time.Time
	Version   int
}

// Retention decides which backups survive pruning. A backup is kept when
// any enabled rule keeps it, and the newest backup always survives. Zero
// fields disable their rule.
type Retention struct {
	// Keep retains the most recent backups up to this count.
	Keep int

	// MaxAge retains backups younger than this.
	MaxAge time.Duration

	// MaxSize retains the newest backups whose running total fits.
	MaxSize int64
}

// Select splits backups, sorted newest first, into those to keep and those
// to drop as of now.
func (r *Retention) Select(now time.Time, backups []Info) (keep, drop []Info) {
	var total int64
	sizeOpen := true
	for i, b := range backups {
		kept := i == 0
		if r.Keep > 0 && i < r.Keep {
			kept = true
		}
		if r.MaxAge > 0 && now.Sub(b.CreatedAt) < r.MaxAge {
			kept = true
		}
		if r.MaxSize > 0 && sizeOpen {
			if i == 0 || total+b.Size <= r.MaxSize {
				total += b.Size
				kept = true
			} else {
				sizeOpen = false
			}
		}
		if kept {
			keep = append(keep, b)
		} else {
			drop = append(drop, b)
		}
	}
	return keep, drop
}

func isBackupFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && (strings.HasSuffix(name, ".bak") || strings.HasSuffix(name, ".json"))
}

// List scans dir for scenario backups, newest first.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []Info
	for _, e := range entries {
		if e.IsDir() || !isBackupFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		bi := Info{
			Path:      filepath.Join(dir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if v, err := DetectFormat(bi.Path); err == nil {
			bi.Version = v
		}
		backups = append(backups, bi)
	}

	// The timestamp is embedded in the name.
	sort.Slice(backups, func(i, j int) bool {
		return filepath.Base(backups[i].Path) > filepath.Base(backups[j].Path)
	})
	return backups, nil
}

// ApplyRetention deletes the backups in dir that r drops and returns their
// paths.
func ApplyRetention(dir string, r *Retention) ([]string, error) {
	backups, err := List(dir)
	if err != nil {
		return nil, err
	}
	_, drop := r.Select(time.Now(), backups)
	var deleted []string
	for _, b := range drop {
		if err := os.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("removing %s: %w", filepath.Base(b.Path), err)
		}
		deleted = append(deleted, b.Path)
	}
	return deleted, nil
}

// ParseDuration parses durations like "30d", "2w" or "720h".
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", s[len(s)-1:], s)
	}
}

// ParseSize parses sizes like "100MB" or "1 GiB" into bytes.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// Policy builds a Retention from config values. It returns nil when no rule
// is set, meaning every backup is kept.
func Policy(keep int, maxAge, maxSize string) (*Retention, error) {
	r := &Retention{Keep: keep}
	if maxAge != "" {
		d, err := ParseDuration(maxAge)
		if err != nil {
			return nil, err
		}
		r.MaxAge = d
	}
	if maxSize != "" {
		n, err := ParseSize(maxSize)
		if err != nil {
			return nil, err
		}
		r.MaxSize = n
	}
	if r.Keep <= 0 && r.MaxAge == 0 && r.MaxSize == 0 {
		return nil, nil
	}
	return r, nil
}
