package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/Reportify/teleopsold-sub002/internal/infra/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down [version]|status|check]",
		Short: "Run database migrations",
		Long:  `Apply, roll back or inspect the embedded RBAC schema migrations. Defaults to "up".`,
		Args:  migrateArgs,
		RunE:  runMigrate,
	}
	cmd.Flags().String("dsn", "", "PostgreSQL DSN (defaults to the RBAC_POSTGRES_* settings)")
	cmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
	return cmd
}

func migrateArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if err := cobra.RangeArgs(0, 2)(cmd, args); err != nil {
		return err
	}

	switch args[0] {
	case "up", "down", "status", "check":
	default:
		return fmt.Errorf("invalid first argument: %q", args[0])
	}

	if len(args) == 2 {
		if args[0] != "down" {
			return fmt.Errorf("invalid argument combination: %q", args)
		}
		if version, err := strconv.ParseInt(args[1], 10, 64); err != nil || version < 0 {
			return fmt.Errorf("invalid version number: %q", args[1])
		}
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	version := int64(-1)
	if len(args) > 1 {
		version, _ = strconv.ParseInt(args[1], 10, 64)
	}

	format, _ := cmd.Flags().GetString("format")
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		cfg, err := mustConfig()
		if err != nil {
			return err
		}
		dsn = cfg.Postgres.DSN()
	}

	migrator, err := database.NewMigrator(cmd.Context(), dsn, format == "json")
	if err != nil {
		return err
	}
	defer migrator.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch command {
	case "up":
		results, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		return renderResults(out, format, results)
	case "down":
		results, err := migrator.Down(ctx, version)
		if err != nil {
			return err
		}
		return renderResults(out, format, results)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		return renderStatus(out, format, statuses)
	case "check":
		pending, current, err := migrator.Pending(ctx)
		if err != nil {
			return err
		}
		return renderCheck(out, format, pending, current)
	}
	return nil
}

func renderResults(out io.Writer, format string, results []*goose.MigrationResult) error {
	if results == nil {
		results = []*goose.MigrationResult{}
	}
	if format == "json" {
		return json.NewEncoder(out).Encode(map[string]any{"applied": results})
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
	return nil
}

func renderStatus(out io.Writer, format string, statuses []*goose.MigrationStatus) error {
	if format == "json" {
		return json.NewEncoder(out).Encode(statuses)
	}

	fmt.Fprintln(out, "    Applied At                  Migration")
	fmt.Fprintln(out, "    =======================================")
	for _, s := range statuses {
		appliedAt := "Pending"
		if s.State == goose.StateApplied {
			appliedAt = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "    %-24s -- %s\n", appliedAt, s.Source.Path)
	}
	return nil
}

func renderCheck(out io.Writer, format string, pending bool, current int64) error {
	if format == "json" {
		status := "ok"
		if pending {
			status = "pending"
		}
		return json.NewEncoder(out).Encode(map[string]any{"status": status, "version": current})
	}
	if pending {
		return fmt.Errorf("migrations are pending: current version %d", current)
	}
	fmt.Fprintf(out, "Database is up to date (version %d)\n", current)
	return nil
}
