package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
)

// PermissionInvalidator drops cached permission maps. usecase.RBACService satisfies it.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, tenantID, profileID string) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}

// LagObserver records how long an invalidation event took to reach this instance.
type LagObserver interface {
	ObserveInvalidationLag(lag time.Duration)
}

// InvalidationConsumer applies invalidation events from other instances to the local cache.
type InvalidationConsumer struct {
	invalidator PermissionInvalidator
	lag         LagObserver
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvalidationConsumer constructs the consumer.
func NewInvalidationConsumer(invalidator PermissionInvalidator, logger *zap.Logger) *InvalidationConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvalidationConsumer{
		invalidator: invalidator,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithLagObserver attaches a lag metric.
func (c *InvalidationConsumer) WithLagObserver(observer LagObserver) *InvalidationConsumer {
	c.lag = observer
	return c
}

// WithClock overrides the consumer clock for deterministic testing.
func (c *InvalidationConsumer) WithClock(clock func() time.Time) *InvalidationConsumer {
	if clock != nil {
		c.now = clock
	}
	return c
}

// HandleMessage decodes the envelope prior to processing.
func (c *InvalidationConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	event, err := decodeInvalidation(msg.Value)
	if err != nil {
		return err
	}
	return c.HandleEvent(ctx, event)
}

// HandleEvent drops the cached state covered by event.
func (c *InvalidationConsumer) HandleEvent(ctx context.Context, event domain.PermissionsInvalidatedEvent) error {
	if c.invalidator == nil {
		return nil
	}
	if event.TenantID == "" {
		return fmt.Errorf("invalidation event %s has no tenant", event.EventID)
	}

	if c.lag != nil && !event.OccurredAt.IsZero() {
		lag := c.now().Sub(event.OccurredAt)
		if lag < 0 {
			lag = 0
		}
		c.lag.ObserveInvalidationLag(lag)
	}

	switch event.Scope {
	case domain.InvalidationScopeTenant:
		if err := c.invalidator.InvalidateTenant(ctx, event.TenantID); err != nil {
			return fmt.Errorf("invalidate tenant %s: %w", event.TenantID, err)
		}
	case domain.InvalidationScopeProfile, "":
		if event.UserProfileID == "" {
			return fmt.Errorf("profile invalidation event %s has no profile", event.EventID)
		}
		if err := c.invalidator.Invalidate(ctx, event.TenantID, event.UserProfileID); err != nil {
			return fmt.Errorf("invalidate profile %s: %w", event.UserProfileID, err)
		}
	default:
		return fmt.Errorf("unknown invalidation scope %q", event.Scope)
	}

	c.logger.Debug("applied permission invalidation",
		zap.String("event_id", event.EventID),
		zap.String("tenant_id", event.TenantID),
		zap.String("scope", string(event.Scope)),
		zap.String("reason", event.Reason),
	)
	return nil
}

// Setup implements sarama.ConsumerGroupHandler.
func (c *InvalidationConsumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler.
func (c *InvalidationConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim applies every message of the claim. Undecodable or failing events are logged and
// committed; a stale cache entry expires by TTL anyway, and a poison message must not stall the
// partition.
func (c *InvalidationConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := c.HandleMessage(session.Context(), msg); err != nil {
				c.logger.Warn("permission invalidation failed",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

var _ sarama.ConsumerGroupHandler = (*InvalidationConsumer)(nil)

// ConsumerGroup runs an InvalidationConsumer inside a sarama consumer group.
type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	handler sarama.ConsumerGroupHandler
	topics  []string
	logger  *zap.Logger
}

// NewConsumerGroup joins cfg.ConsumerGroup. Each instance should use its own group id when
// local caches are in use so every instance sees every event.
func NewConsumerGroup(cfg config.KafkaSettings, handler sarama.ConsumerGroupHandler, logger *zap.Logger) (*ConsumerGroup, error) {
	saramaConfig := newSaramaConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}
	return newConsumerGroup(group, handler, []string{prefixedTopic(cfg.TopicPrefix, TopicPermissionsInvalidated)}, logger), nil
}

func newConsumerGroup(group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topics []string, logger *zap.Logger) *ConsumerGroup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsumerGroup{group: group, handler: handler, topics: topics, logger: logger}
}

// Run consumes until ctx is cancelled, rejoining the group after every rebalance.
func (g *ConsumerGroup) Run(ctx context.Context) error {
	go func() {
		for err := range g.group.Errors() {
			g.logger.Warn("kafka consumer group error", zap.Error(err))
		}
	}()

	g.logger.Info("starting invalidation consumer", zap.Strings("topics", g.topics))
	for {
		if err := g.group.Consume(ctx, g.topics, g.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consume invalidations: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close leaves the group.
func (g *ConsumerGroup) Close() error {
	if err := g.group.Close(); err != nil {
		return fmt.Errorf("close kafka consumer group: %w", err)
	}
	return nil
}
