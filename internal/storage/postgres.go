// Package storage provides database-backed option stores for the settings
// resolver.
//
// Detection itself performs no I/O. These adapters are for deployments that
// keep the dynamic global options and per-project detector overrides in a
// database: Postgres (pgx pool) for servers, embedded SQLite for CLI and
// local use. Both satisfy settings.OptionStore and
// settings.ProjectOptionStore; read failures are absorbed as "option not
// set" per the configuration-error taxonomy.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spanwatch/spanwatch/internal/settings"
)

// PostgresStore keeps options in two tables: options(name, value) for the
// global dynamic store and project_options(project_id, key, value) for
// per-project overrides. Values are jsonb.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ settings.OptionStore        = (*PostgresStore)(nil)
	_ settings.ProjectOptionStore = (*PostgresStore)(nil)
)

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Migrate creates the option tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS options (
			name  text PRIMARY KEY,
			value jsonb NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS project_options (
			project_id bigint NOT NULL,
			key        text   NOT NULL,
			value      jsonb  NOT NULL,
			PRIMARY KEY (project_id, key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: migrate: %w", err)
		}
	}
	return nil
}

// Lookup implements settings.OptionStore.
func (s *PostgresStore) Lookup(ctx context.Context, name string) (any, bool) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM options WHERE name = $1`, name,
	).Scan(&raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("storage: option lookup failed", "option", name, "error", err)
		}
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		s.logger.Debug("storage: option value malformed", "option", name, "error", err)
		return nil, false
	}
	return v, true
}

// SetOption upserts one global option. Value must be JSON-encodable.
func (s *PostgresStore) SetOption(ctx context.Context, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode option %s: %w", name, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO options (name, value) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		name, raw,
	)
	if err != nil {
		return fmt.Errorf("storage: set option %s: %w", name, err)
	}
	return nil
}

// ProjectOptions implements settings.ProjectOptionStore.
func (s *PostgresStore) ProjectOptions(ctx context.Context, projectID int64, key string) (map[string]any, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM project_options WHERE project_id = $1 AND key = $2`,
		projectID, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: project options: %w", err)
	}
	var v map[string]any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("storage: project options malformed: %w", err)
	}
	return v, nil
}

// SetProjectOptions upserts one project's override value.
func (s *PostgresStore) SetProjectOptions(ctx context.Context, projectID int64, key string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode project options: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO project_options (project_id, key, value) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, key) DO UPDATE SET value = EXCLUDED.value`,
		projectID, key, raw,
	)
	if err != nil {
		return fmt.Errorf("storage: set project options: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
