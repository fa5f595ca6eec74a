package scenario

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 2

// schemaV1 is the initial schema for the SQLite library.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS scenarios (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    week_available INTEGER NOT NULL DEFAULT 0,
    options TEXT NOT NULL,  -- JSON array of options
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scenarios_week ON scenarios(week_available);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// schemaV2 records where each scenario came from.
const schemaV2 = `
ALTER TABLE scenarios ADD COLUMN origin TEXT NOT NULL DEFAULT 'user';
`

// InitSchema creates the schema on a fresh database and migrates an older
// one. It reports whether the database was fresh.
func InitSchema(ctx context.Context, db *sql.DB) (fresh bool, err error) {
	current, err := getSchemaVersion(ctx, db)
	if err != nil {
		if err := createSchema(ctx, db); err != nil {
			return false, fmt.Errorf("failed to create schema: %w", err)
		}
		return true, nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return false, fmt.Errorf("database integrity check failed: %w", err)
	}

	if current < SchemaVersion {
		if err := migrateSchema(ctx, db, current); err != nil {
			return false, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return false, nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{schemaV1, schemaV2} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// migrateSchema applies migrations from current to SchemaVersion.
func migrateSchema(ctx context.Context, db *sql.DB, current int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if current < 2 {
		if _, err := tx.ExecContext(ctx, schemaV2); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	return rows.Err()
}
