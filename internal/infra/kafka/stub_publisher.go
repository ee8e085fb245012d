package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
)

// StubPublisher logs invalidation events instead of sending them. Used when no brokers are
// configured, which is only safe for single-instance deployments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a logging-only publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

var _ port.EventPublisher = (*StubPublisher)(nil)

func (p *StubPublisher) PublishPermissionsInvalidated(_ context.Context, event domain.PermissionsInvalidatedEvent) error {
	p.logger.Info("stub event published",
		zap.String("event_type", TopicPermissionsInvalidated),
		zap.String("event_id", event.EventID),
		zap.String("tenant_id", event.TenantID),
		zap.String("user_profile_id", event.UserProfileID),
		zap.String("scope", string(event.Scope)),
		zap.String("reason", event.Reason),
	)
	return nil
}
