package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// TenantRepository reads tenants and vendor relationships.
type TenantRepository interface {
	GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error)
	ListVendorClients(ctx context.Context, vendorTenantID string) ([]domain.VendorRelationship, error)
}

// UserProfileRepository resolves tenant user profiles.
type UserProfileRepository interface {
	GetByID(ctx context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error)
}
