// Package migrations applies the embedded SQL schema with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

//go:embed sql/*.sql
var migrationFS embed.FS

const migrationsDir = "sql"

var setupOnce sync.Once
var setupErr error

// goose keeps its dialect and filesystem in package globals
func setup() error {
	setupOnce.Do(func() {
		goose.SetBaseFS(migrationFS)
		setupErr = goose.SetDialect("postgres")
	})
	return setupErr
}

// Migrator runs schema migrations against a database
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a migrator for db
func NewMigrator(db *sql.DB) (*Migrator, error) {
	if err := setup(); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Migrator{db: db}, nil
}

// Up applies all pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)
	logger.Info().Msg("Applying database migrations")

	if err := goose.UpContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int64("version", version).Msg("Migrations applied")
	return nil
}

// Down rolls back the most recent migration
func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

// Status prints the applied state of every migration
func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
