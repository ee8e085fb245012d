package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// OverrideRepository persists per-profile permission overrides.
type OverrideRepository interface {
	ListByProfile(ctx context.Context, tenantID, profileID string) ([]domain.UserPermissionOverride, error)
	Upsert(ctx context.Context, override domain.UserPermissionOverride) error
	Deactivate(ctx context.Context, profileID, permissionID string) error
}
