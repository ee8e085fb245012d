package port

import (
	"context"
	"time"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// PermissionCache stores resolved permission maps keyed by tenant and profile.
// Get returns repository.ErrNotFound on a miss.
type PermissionCache interface {
	Get(ctx context.Context, tenantID, profileID string) (*domain.EffectivePermissions, error)
	Set(ctx context.Context, permissions domain.EffectivePermissions, ttl time.Duration) error
	Invalidate(ctx context.Context, tenantID, profileID string) error
	InvalidateTenant(ctx context.Context, tenantID string) error
}
