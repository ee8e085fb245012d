package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
	"github.com/Reportify/teleopsold-sub002/internal/infra/database"
	postgresrepo "github.com/Reportify/teleopsold-sub002/internal/repository/postgres"
	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

func newExplainCmd() *cobra.Command {
	var tenantID, profileID, format string

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show a profile's effective permissions and where each one comes from",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig()
			if err != nil {
				return err
			}

			rbac, closeFn, err := openRBAC(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			profile, err := rbac.LoadProfile(cmd.Context(), tenantID, profileID)
			if err != nil {
				return err
			}
			explanation, err := rbac.Explain(cmd.Context(), *profile)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(explanation)
			}
			return renderExplanation(cmd.OutOrStdout(), explanation)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID")
	cmd.Flags().StringVar(&profileID, "profile", "", "Tenant user profile ID")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

// openRBAC builds an uncached resolution engine straight over postgres.
func openRBAC(ctx context.Context, cfg *config.AppConfig) (*usecase.RBACService, func(), error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	repos := postgresrepo.NewRepositories(pool)
	rbac := usecase.NewRBACService(repos.Profiles, repos.Registry, repos.Designations, repos.Groups, repos.Overrides).
		WithTenantRepository(repos.Tenants)
	return rbac, pool.Close, nil
}

func renderExplanation(out io.Writer, explanation *domain.PermissionExplanation) error {
	effective := explanation.Effective
	meta := effective.Metadata
	fmt.Fprintf(out, "profile %s in tenant %s\n", effective.UserProfileID, effective.TenantID)
	fmt.Fprintf(out, "designations=%d groups=%d overrides=%d administrator=%t\n\n",
		meta.DesignationCount, meta.GroupCount, meta.OverrideCount, meta.IsAdministrator)

	codes := make([]string, 0, len(effective.Permissions))
	for code := range effective.Permissions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERMISSION\tLEVEL\tSOURCE\tCONTRIBUTIONS")
	for _, code := range codes {
		entry := effective.Permissions[code]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", code, entry.Level, entry.Source, describe(explanation.Contributions[code]))
	}
	return tw.Flush()
}

func describe(contributions []domain.Contribution) string {
	out := ""
	for i, c := range contributions {
		if i > 0 {
			out += "; "
		}
		name := c.SourceName
		if name == "" {
			name = c.SourceID
		}
		out += fmt.Sprintf("%s %s=%s", c.Source, name, c.Level)
		if c.Reason != "" {
			out += fmt.Sprintf(" (%s)", c.Reason)
		}
	}
	return out
}
