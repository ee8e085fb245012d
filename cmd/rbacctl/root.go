package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rbacctl",
		Short:         "Tenant RBAC service",
		Long:          `Operational CLI for the tenant RBAC service. Settings are read from RBAC_* environment variables and .env.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newMigrateCmd(),
		newExplainCmd(),
		newInvalidateCmd(),
		newTokenCmd(),
	)
	return root
}

func mustConfig() (*config.AppConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
