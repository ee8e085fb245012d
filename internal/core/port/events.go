package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishPermissionsInvalidated(ctx context.Context, event domain.PermissionsInvalidatedEvent) error
}
