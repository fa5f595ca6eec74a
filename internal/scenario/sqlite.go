package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

// Origins recorded for stored scenarios.
const (
	OriginDefault = "default"
	OriginUser    = "user"
)

// SQLiteLibrary stores scenarios in a SQLite database. A fresh database is
// seeded with the default scenarios.
type SQLiteLibrary struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLiteLibrary opens (or creates) the database at path.
func NewSQLiteLibrary(ctx context.Context, path string) (*SQLiteLibrary, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite library requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	fresh, err := InitSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	l := &SQLiteLibrary{db: db, path: path}
	if fresh {
		for _, d := range Defaults() {
			if err := l.insert(ctx, d, OriginDefault); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to seed default scenarios: %w", err)
			}
		}
	}
	return l, nil
}

// All implements Library.
func (l *SQLiteLibrary) All(ctx context.Context) ([]models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query(ctx, `SELECT id, title, description, category, week_available, options
		FROM scenarios ORDER BY seq`)
}

// Get implements Library.
func (l *SQLiteLibrary) Get(ctx context.Context, id string) (*models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	row := l.db.QueryRowContext(ctx, `SELECT id, title, description, category, week_available, options
		FROM scenarios WHERE id = ?`, id)
	d, err := scanDecision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ForWeek implements Library.
func (l *SQLiteLibrary) ForWeek(ctx context.Context, week int) ([]models.Decision, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.query(ctx, `SELECT id, title, description, category, week_available, options
		FROM scenarios WHERE week_available <= ? ORDER BY seq`, week)
}

// Add implements Library.
func (l *SQLiteLibrary) Add(ctx context.Context, d models.Decision) error {
	if err := d.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.insert(ctx, d, OriginUser)
}

// Origin returns where the scenario with id came from.
func (l *SQLiteLibrary) Origin(ctx context.Context, id string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var origin string
	err := l.db.QueryRowContext(ctx, `SELECT origin FROM scenarios WHERE id = ?`, id).Scan(&origin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return origin, err
}

// Close implements Library.
func (l *SQLiteLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func (l *SQLiteLibrary) insert(ctx context.Context, d models.Decision, origin string) error {
	opts, err := json.Marshal(d.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `INSERT INTO scenarios
		(id, title, description, category, week_available, options, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))`,
		d.ID, d.Title, d.Description, string(d.Category), d.WeekAvailable, string(opts), origin)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, d.ID)
		}
		return fmt.Errorf("failed to insert scenario %s: %w", d.ID, err)
	}
	return nil
}

func (l *SQLiteLibrary) query(ctx context.Context, q string, args ...any) ([]models.Decision, error) {
	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	out := []models.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(s scanner) (models.Decision, error) {
	var (
		d        models.Decision
		category string
		options  string
	)
	if err := s.Scan(&d.ID, &d.Title, &d.Description, &category, &d.WeekAvailable, &options); err != nil {
		return d, err
	}
	d.Category = models.Category(category)
	if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
		return d, fmt.Errorf("scenario %s: corrupt options: %w", d.ID, err)
	}
	return d, nil
}
