// Package backup exports and restores the scenario library.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
)

// Archive is the payload of a backup file.
type Archive struct {
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	Scenarios []models.Decision `json:"scenarios"`
}

// filePrefix names every generated backup file.
const filePrefix = "agentsim-scenarios-"

// DefaultBackupDir returns dataDir/backups.
func DefaultBackupDir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// GenerateBackupPath creates a timestamped backup filename in dir.
func GenerateBackupPath(dir string) string {
	ts := time.Now().Format("20060102-150405.000")
	return filepath.Join(dir, filePrefix+ts+".bak")
}

// Export writes every scenario in lib to path in the V2 format.
func Export(ctx context.Context, lib scenario.Library, path string) (*Header, error) {
	all, err := lib.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	a := &Archive{Version: FormatV2, CreatedAt: time.Now().UTC(), Scenarios: all}
	return WriteV2(path, a, map[string]string{"source": "agentsim"})
}

// Load reads a backup of either format.
func Load(path string) (*Archive, error) {
	version, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if version == FormatV2 {
		a, _, err := ReadV2(path)
		return a, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if a.Version != FormatV1 {
		return nil, fmt.Errorf("unsupported backup version: %d", a.Version)
	}
	return &a, nil
}

// WriteV1 writes a plain JSON backup, readable without any tooling.
func WriteV1(ctx context.Context, lib scenario.Library, path string) error {
	all, err := lib.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}
	data, err := json.MarshalIndent(&Archive{Version: FormatV1, CreatedAt: time.Now().UTC(), Scenarios: all}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Restore adds every scenario from the backup at path to lib. Scenarios
// whose id already exists are skipped.
func Restore(ctx context.Context, lib scenario.Library, path string) (scenario.ImportResult, error) {
	a, err := Load(path)
	if err != nil {
		return scenario.ImportResult{}, err
	}
	return scenario.Import(ctx, lib, a.Scenarios)
}
