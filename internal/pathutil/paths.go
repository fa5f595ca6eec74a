// Package pathutil confines user-supplied output paths to known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowed is returned by Confine for paths outside every allowed
// directory.
var ErrOutsideAllowed = errors.New("path is outside the allowed directories")

// Redact shortens path to its last two elements for error messages, so
// /home/me/.agentsim/backups/a.bak reads .../backups/a.bak.
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Confine resolves path and checks that it lies inside one of dirs. Symlinks
// in existing ancestors are followed on both sides, so a link inside an
// allowed directory cannot point the write elsewhere. The file itself need
// not exist.
func Confine(path string, dirs []string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New("path contains a null byte")
	}
	if len(dirs) == 0 {
		return "", errors.New("no allowed directories")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", Redact(path), err)
	}
	parent, err := resolve(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	resolved := filepath.Join(parent, filepath.Base(abs))

	for _, dir := range dirs {
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		base, err := resolve(dirAbs)
		if err != nil {
			continue
		}
		if resolved == base || strings.HasPrefix(resolved, base+string(os.PathSeparator)) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%s: %w", Redact(abs), ErrOutsideAllowed)
}

// resolve follows symlinks in the deepest existing ancestor of dir and
// appends the missing tail unchanged.
func resolve(dir string) (string, error) {
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		return real, nil
	}
	up := filepath.Dir(dir)
	if up == dir {
		return "", fmt.Errorf("cannot resolve %s", Redact(dir))
	}
	real, err := resolve(up)
	if err != nil {
		return "", err
	}
	return filepath.Join(real, filepath.Base(dir)), nil
}
