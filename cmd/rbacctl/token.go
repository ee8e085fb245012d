package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Reportify/teleopsold-sub002/internal/infra/security"
)

func newTokenCmd() *cobra.Command {
	var tenantID, profileID, userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an identity token for local testing",
		Long:  `Signs a short-lived token with the configured shared secret. Production tokens come from the identity service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig()
			if err != nil {
				return err
			}
			verifier, err := security.NewTokenVerifier(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := verifier.Sign(tenantID, profileID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID")
	cmd.Flags().StringVar(&profileID, "profile", "", "Tenant user profile ID")
	cmd.Flags().StringVar(&userID, "user", "", "Global user ID")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}
