package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	kafkainfra "github.com/Reportify/teleopsold-sub002/internal/infra/kafka"
	redisinfra "github.com/Reportify/teleopsold-sub002/internal/infra/redis"
	redisrepo "github.com/Reportify/teleopsold-sub002/internal/repository/redis"
)

func newInvalidateCmd() *cobra.Command {
	var tenantID, profileID, reason string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached permission maps for a profile or a whole tenant",
		Long: `Deletes the shared redis entries when the redis cache backend is configured and publishes an
invalidation event so instances with in-process caches drop theirs too.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mustConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			scope := domain.InvalidationScopeTenant
			if profileID != "" {
				scope = domain.InvalidationScopeProfile
			}

			if cfg.RBAC.CacheBackend == "redis" {
				client, err := redisinfra.NewClient(ctx, cfg.Redis, zap.NewNop())
				if err != nil {
					return err
				}
				defer client.Close()

				cache := redisrepo.NewPermissionCache(client.Client(), cfg.RBAC.CacheKeyPrefix)
				if scope == domain.InvalidationScopeProfile {
					err = cache.Invalidate(ctx, tenantID, profileID)
				} else {
					err = cache.InvalidateTenant(ctx, tenantID)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "redis entries dropped (%s scope)\n", scope)
			}

			if len(cfg.Kafka.Brokers) == 0 {
				return nil
			}
			producer, err := kafkainfra.NewProducer(cfg.Kafka, zap.NewNop())
			if err != nil {
				return err
			}
			publisher := kafkainfra.NewEventPublisher(producer, cfg.App, zap.NewNop())
			publishErr := publisher.PublishPermissionsInvalidated(ctx, domain.PermissionsInvalidatedEvent{
				EventID:       uuid.NewString(),
				TenantID:      tenantID,
				UserProfileID: profileID,
				Scope:         scope,
				Reason:        reason,
				ChangedBy:     "rbacctl",
				OccurredAt:    time.Now().UTC(),
			})
			// Close flushes the async producer before the process exits.
			if err := producer.Close(); err != nil && publishErr == nil {
				publishErr = err
			}
			if publishErr != nil {
				return publishErr
			}
			fmt.Fprintln(out, "invalidation event published")
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID")
	cmd.Flags().StringVar(&profileID, "profile", "", "Tenant user profile ID (omit for the whole tenant)")
	cmd.Flags().StringVar(&reason, "reason", "manual_invalidation", "Reason recorded on the event")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
