// Package scenario provides the scenario library: predefined decisions that
// are merged into the choices offered each turn.
package scenario

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

var (
	// ErrNotFound is returned by Get when no scenario has the id.
	ErrNotFound = errors.New("scenario not found")

	// ErrDuplicate is returned by Add when the id is already taken.
	ErrDuplicate = errors.New("scenario id already exists")
)

// Library stores scenarios. Implementations are safe for concurrent use.
type Library interface {
	// All returns every scenario in insertion order.
	All(ctx context.Context) ([]models.Decision, error)

	// Get returns the scenario with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Decision, error)

	// ForWeek returns the scenarios whose week_available is at or before week.
	ForWeek(ctx context.Context, week int) ([]models.Decision, error)

	// Add validates d and stores it. Ids are unique.
	Add(ctx context.Context, d models.Decision) error

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendMemory, BackendFile, BackendSQLite}

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the scenarios every new library starts with.
func Defaults() []models.Decision {
	out, err := ParseYAML(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scenarios are invalid: %v", err))
	}
	return out
}

// ParseYAML decodes a YAML list of scenarios. A single mapping is accepted
// as a one-element list.
func ParseYAML(data []byte) ([]models.Decision, error) {
	var list []models.Decision
	if err := yaml.Unmarshal(data, &list); err != nil {
		var single models.Decision
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse scenarios: %w", err)
		}
		list = []models.Decision{single}
	}
	return list, nil
}

// Open returns the library for backend. Path is the YAML file for "file" and
// the database file for "sqlite"; it is ignored for "memory".
func Open(ctx context.Context, backend, path string) (Library, error) {
	switch strings.ToLower(backend) {
	case "", BackendMemory:
		return NewMemoryLibrary(), nil
	case BackendFile:
		return NewFileLibrary(path)
	case BackendSQLite:
		return NewSQLiteLibrary(ctx, path)
	default:
		return nil, fmt.Errorf("unknown scenario backend %q (want one of %s)", backend, strings.Join(Backends, ", "))
	}
}

// DefaultPath returns the conventional location of the library for backend
// under dataDir.
func DefaultPath(dataDir, backend string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(dataDir, "scenarios.db")
	default:
		return filepath.Join(dataDir, "scenarios.yaml")
	}
}

// DataDir returns the agentsim data directory under root.
func DataDir(root string) string {
	return filepath.Join(root, ".agentsim")
}

// GlobalDataDir returns ~/.agentsim.
func GlobalDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return DataDir(home), nil
}

// AssignIDs fills in missing scenario and option ids.
func AssignIDs(d *models.Decision) {
	if d.ID == "" {
		d.ID = "scenario_" + uuid.NewString()[:8]
	}
	for i := range d.Options {
		if d.Options[i].ID == "" {
			d.Options[i].ID = "option_" + uuid.NewString()[:8]
		}
	}
}

// ImportResult reports what Import did with each scenario.
type ImportResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// Import assigns missing ids and adds every scenario to lib. Scenarios whose
// id already exists are skipped; any other failure stops the import.
func Import(ctx context.Context, lib Library, decisions []models.Decision) (ImportResult, error) {
	res := ImportResult{Added: []string{}, Skipped: []string{}}
	for _, d := range decisions {
		d = d.Clone()
		AssignIDs(&d)
		err := lib.Add(ctx, d)
		switch {
		case err == nil:
			res.Added = append(res.Added, d.ID)
		case errors.Is(err, ErrDuplicate):
			res.Skipped = append(res.Skipped, d.ID)
		default:
			return res, fmt.Errorf("import %s: %w", d.ID, err)
		}
	}
	return res, nil
}

func availableBy(all []models.Decision, week int) []models.Decision {
	out := []models.Decision{}
	for _, d := range all {
		if d.WeekAvailable <= week {
			out = append(out, d.Clone())
		}
	}
	return out
}
