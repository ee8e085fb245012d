package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Reportify/teleopsold-sub002/migrations"
)

// Migrator applies the embedded RBAC schema migrations.
type Migrator struct {
	db       *sql.DB
	provider *goose.Provider
}

// NewMigrator opens a database/sql handle over pgx and builds a goose provider. quiet suppresses
// goose's own progress logging, used when the caller renders machine-readable output.
func NewMigrator(ctx context.Context, dsn string, quiet bool) (*Migrator, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	var opts []goose.ProviderOption
	if quiet {
		opts = append(opts, goose.WithLogger(goose.NopLogger()))
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.EmbedMigrations, opts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create goose provider: %w", err)
	}

	return &Migrator{db: db, provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	return m.provider.Up(ctx)
}

// Down rolls back one migration, or down to version when version is not negative.
func (m *Migrator) Down(ctx context.Context, version int64) ([]*goose.MigrationResult, error) {
	if version < 0 {
		result, err := m.provider.Down(ctx)
		if err != nil {
			return nil, err
		}
		return []*goose.MigrationResult{result}, nil
	}
	return m.provider.DownTo(ctx, version)
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// Pending reports whether migrations are pending along with the current database version.
func (m *Migrator) Pending(ctx context.Context) (bool, int64, error) {
	pending, err := m.provider.HasPending(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("check pending migrations: %w", err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return pending, 0, fmt.Errorf("read database version: %w", err)
	}
	return pending, current, nil
}

// Close releases the database handle.
func (m *Migrator) Close() error {
	return m.db.Close()
}
