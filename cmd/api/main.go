// Command api serves the RBAC permission-resolution HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/infra/app"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
	"github.com/Reportify/teleopsold-sub002/internal/infra/database"
	"github.com/Reportify/teleopsold-sub002/internal/infra/logger"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, cfg)
	if err != nil {
		if errors.Is(err, database.ErrSchemaMissing) {
			log.Error("database is not migrated", zap.String("schema", database.Schema), zap.Error(err))
		} else {
			log.Error("failed to initialise rbac api", zap.String("version", app.Version), zap.Error(err))
		}
		_ = log.Sync()
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error("rbac api stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
