package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// FileLibrary keeps scenarios in a YAML file. A missing file means the
// default scenarios; the file is written on every Add.
type FileLibrary struct {
	mu   sync.Mutex
	path string
	mem  *MemoryLibrary

	// LoadErrors records scenarios that were skipped because they failed
	// validation when the file was read.
	LoadErrors []LoadError
}

// LoadError describes a scenario skipped while loading.
type LoadError struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Error string `json:"error"`
}

// NewFileLibrary loads the library at path.
func NewFileLibrary(path string) (*FileLibrary, error) {
	if path == "" {
		return nil, fmt.Errorf("file library requires a path")
	}
	l := &FileLibrary{path: path, LoadErrors: []LoadError{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read scenarios: %w", err)
		}
		l.mem = NewMemoryLibrary()
		return l, nil
	}

	decisions, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	valid := make([]models.Decision, 0, len(decisions))
	for i, d := range decisions {
		if err := d.Validate(); err != nil {
			l.LoadErrors = append(l.LoadErrors, LoadError{Index: i, ID: d.ID, Error: err.Error()})
			continue
		}
		valid = append(valid, d)
	}
	l.mem = NewMemoryLibraryWith(valid)
	return l, nil
}

// Path returns the backing file.
func (l *FileLibrary) Path() string {
	return l.path
}

// All implements Library.
func (l *FileLibrary) All(ctx context.Context) ([]models.Decision, error) {
	return l.mem.All(ctx)
}

// Get implements Library.
func (l *FileLibrary) Get(ctx context.Context, id string) (*models.Decision, error) {
	return l.mem.Get(ctx, id)
}

// ForWeek implements Library.
func (l *FileLibrary) ForWeek(ctx context.Context, week int) ([]models.Decision, error) {
	return l.mem.ForWeek(ctx, week)
}

// Add implements Library. The whole library is rewritten to disk.
func (l *FileLibrary) Add(ctx context.Context, d models.Decision) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.mem.Add(ctx, d); err != nil {
		return err
	}
	all, err := l.mem.All(ctx)
	if err != nil {
		return err
	}
	if err := writeYAML(l.path, all); err != nil {
		return fmt.Errorf("failed to save scenarios: %w", err)
	}
	return nil
}

// Close implements Library.
func (l *FileLibrary) Close() error {
	return nil
}

// writeYAML replaces path atomically.
func writeYAML(path string, decisions []models.Decision) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(decisions)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
