package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/spanwatch/spanwatch/internal/settings"
)

// SQLiteStore is the embedded counterpart of PostgresStore: same two-table
// shape, values stored as JSON text. The modernc driver is pure Go, so the
// CLI works without cgo.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ settings.OptionStore        = (*SQLiteStore)(nil)
	_ settings.ProjectOptionStore = (*SQLiteStore)(nil)
)

// NewSQLite opens (and creates if missing) the database at path.
// Use ":memory:" for tests.
func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS options (
			name  TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS project_options (
			project_id INTEGER NOT NULL,
			key        TEXT    NOT NULL,
			value      TEXT    NOT NULL,
			PRIMARY KEY (project_id, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate sqlite: %w", err)
		}
	}
	return nil
}

// Lookup implements settings.OptionStore.
func (s *SQLiteStore) Lookup(ctx context.Context, name string) (any, bool) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM options WHERE name = ?`, name,
	).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("storage: option lookup failed", "option", name, "error", err)
		}
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.Debug("storage: option value malformed", "option", name, "error", err)
		return nil, false
	}
	return v, true
}

// SetOption upserts one global option.
func (s *SQLiteStore) SetOption(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode option %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO options (name, value) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		name, string(raw),
	)
	if err != nil {
		return fmt.Errorf("storage: set option %s: %w", name, err)
	}
	return nil
}

// ProjectOptions implements settings.ProjectOptionStore.
func (s *SQLiteStore) ProjectOptions(ctx context.Context, projectID int64, key string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM project_options WHERE project_id = ? AND key = ?`,
		projectID, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: project options: %w", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("storage: project options malformed: %w", err)
	}
	return v, nil
}

// SetProjectOptions upserts one project's override value.
func (s *SQLiteStore) SetProjectOptions(ctx context.Context, projectID int64, key string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode project options: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO project_options (project_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (project_id, key) DO UPDATE SET value = excluded.value`,
		projectID, key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("storage: set project options: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
