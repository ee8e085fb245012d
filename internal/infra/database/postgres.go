package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

const (
	// Schema holds every RBAC table. Queries and migrations qualify tables with it, so it is not
	// configurable.
	Schema        = "rbac"
	verifyTimeout = 5 * time.Second
	// schemaProbe is the table every resolution reads first.
	schemaProbe = "permission_registry"
)

// ErrSchemaMissing indicates the RBAC tables have not been migrated.
var ErrSchemaMissing = errors.New("rbac schema is not migrated")

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresPool opens a pool with search_path pinned to the RBAC schema and refuses to start
// against a database that has not been migrated.
func NewPostgresPool(ctx context.Context, cfg config.PostgresSettings, log *zap.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	poolConfig.ConnConfig.RuntimeParams["search_path"] = Schema + ",public"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	if err := pool.Ping(verifyCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := VerifySchema(verifyCtx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", Schema),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)

	return pool, nil
}

// VerifySchema checks that the RBAC tables exist.
func VerifySchema(ctx context.Context, db rowQuerier) error {
	var found bool
	if err := db.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", Schema+"."+schemaProbe).Scan(&found); err != nil {
		return fmt.Errorf("probe rbac schema: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: run `rbacctl migrate up` to create schema %q", ErrSchemaMissing, Schema)
	}
	return nil
}
