package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// PermissionRegistryRepository manages the tenant-scoped permission catalogue.
type PermissionRegistryRepository interface {
	Create(ctx context.Context, entry domain.PermissionRegistryEntry) error
	GetByCode(ctx context.Context, tenantID, code string) (*domain.PermissionRegistryEntry, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]domain.PermissionRegistryEntry, error)
	SetActive(ctx context.Context, tenantID, code string, active bool) error
}
