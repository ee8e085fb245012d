package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

// TenantRepository reads tenants and vendor relationships.
type TenantRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTenantRepository constructs the repository from a generic executor.
func NewTenantRepository(exec pgExecutor) *TenantRepository {
	return &TenantRepository{exec: exec, builder: newBuilder()}
}

var _ port.TenantRepository = (*TenantRepository)(nil)

// GetByID fetches a tenant.
func (r *TenantRepository) GetByID(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	stmt, args, err := r.builder.Select("id", "organization_name", "tenant_type", "parent_tenant_id", "is_active", "created_at").
		From("rbac.tenants").
		Where(squirrel.Eq{"id": tenantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tenant sql: %w", err)
	}

	var (
		tenant     domain.Tenant
		tenantType string
		parentID   sql.NullString
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&tenant.ID, &tenant.Name, &tenantType, &parentID, &tenant.IsActive, &tenant.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	tenant.Type = domain.TenantType(tenantType)
	if parentID.Valid {
		tenant.ParentTenantID = &parentID.String
	}
	return &tenant, nil
}

// ListVendorClients returns the relationships of a vendor tenant ordered by start date.
func (r *TenantRepository) ListVendorClients(ctx context.Context, vendorTenantID string) ([]domain.VendorRelationship, error) {
	stmt, args, err := r.builder.Select("vendor_tenant_id", "client_tenant_id", "relationship_status", "started_at").
		From("rbac.vendor_relationships").
		Where(squirrel.Eq{"vendor_tenant_id": vendorTenantID}).
		OrderBy("started_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list vendor relationships sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query vendor relationships: %w", err)
	}
	defer rows.Close()

	relationships := make([]domain.VendorRelationship, 0)
	for rows.Next() {
		var (
			relationship domain.VendorRelationship
			status       string
		)
		if err := rows.Scan(&relationship.VendorTenantID, &relationship.ClientTenantID, &status, &relationship.StartedAt); err != nil {
			return nil, fmt.Errorf("scan vendor relationship: %w", err)
		}
		relationship.Status = domain.VendorRelationshipStatus(status)
		relationships = append(relationships, relationship)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendor relationships: %w", err)
	}
	return relationships, nil
}

// UserProfileRepository resolves tenant user profiles.
type UserProfileRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserProfileRepository constructs the repository from a generic executor.
func NewUserProfileRepository(exec pgExecutor) *UserProfileRepository {
	return &UserProfileRepository{exec: exec, builder: newBuilder()}
}

var _ port.UserProfileRepository = (*UserProfileRepository)(nil)

// GetByID fetches a profile scoped to tenantID.
func (r *UserProfileRepository) GetByID(ctx context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error) {
	stmt, args, err := r.builder.Select("id", "tenant_id", "user_id", "display_name", "email", "is_active").
		From("rbac.tenant_user_profiles").
		Where(squirrel.Eq{"id": profileID, "tenant_id": tenantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	var (
		profile domain.TenantUserProfile
		email   sql.NullString
	)
	row := r.exec.QueryRow(ctx, stmt, args...)
	if err := row.Scan(&profile.ID, &profile.TenantID, &profile.UserID, &profile.DisplayName, &email, &profile.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if email.Valid {
		profile.Email = &email.String
	}
	return &profile, nil
}
