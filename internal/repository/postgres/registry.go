package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

// PermissionRegistryRepository persists the tenant-scoped permission catalogue.
type PermissionRegistryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewPermissionRegistryRepository constructs the repository from a generic executor.
func NewPermissionRegistryRepository(exec pgExecutor) *PermissionRegistryRepository {
	return &PermissionRegistryRepository{
		exec:    exec,
		builder: newBuilder(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx binds the repository to the supplied transaction.
func (r *PermissionRegistryRepository) WithTx(tx pgx.Tx) *PermissionRegistryRepository {
	if tx == nil {
		return r
	}
	return &PermissionRegistryRepository{exec: tx, builder: r.builder, now: r.now}
}

var _ port.PermissionRegistryRepository = (*PermissionRegistryRepository)(nil)

// Create inserts a registry entry.
func (r *PermissionRegistryRepository) Create(ctx context.Context, entry domain.PermissionRegistryEntry) error {
	if strings.TrimSpace(entry.TenantID) == "" || strings.TrimSpace(entry.Code) == "" {
		return fmt.Errorf("tenant id and permission code are required")
	}

	now := r.now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	stmt, args, err := r.builder.Insert("rbac.permission_registry").
		Columns(permissionColumns...).
		Values(
			entry.ID,
			entry.TenantID,
			entry.Code,
			entry.Name,
			entry.Category,
			nullableString(entry.Description),
			string(entry.RiskLevel),
			entry.RequiresScope,
			entry.IsDelegatable,
			string(entry.Effect),
			entry.IsAuditable,
			entry.IsActive,
			entry.CreatedAt,
			entry.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert permission sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeError("insert permission", err)
	}
	return nil
}

// GetByCode fetches a registry entry by code within a tenant regardless of its active flag.
func (r *PermissionRegistryRepository) GetByCode(ctx context.Context, tenantID, code string) (*domain.PermissionRegistryEntry, error) {
	stmt, args, err := r.builder.Select(permissionColumns...).
		From("rbac.permission_registry").
		Where(squirrel.Eq{"tenant_id": tenantID, "permission_code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select permission sql: %w", err)
	}

	entry, err := scanPermission(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan permission: %w", err)
	}
	return entry, nil
}

// ListActiveByTenant returns the active catalogue of a tenant ordered by code.
func (r *PermissionRegistryRepository) ListActiveByTenant(ctx context.Context, tenantID string) ([]domain.PermissionRegistryEntry, error) {
	stmt, args, err := r.builder.Select(permissionColumns...).
		From("rbac.permission_registry").
		Where(squirrel.Eq{"tenant_id": tenantID, "is_active": true}).
		OrderBy("permission_code ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.PermissionRegistryEntry, 0)
	for rows.Next() {
		entry, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return entries, nil
}

// SetActive toggles the active flag of a registry entry.
func (r *PermissionRegistryRepository) SetActive(ctx context.Context, tenantID, code string, active bool) error {
	stmt, args, err := r.builder.Update("rbac.permission_registry").
		Set("is_active", active).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"tenant_id": tenantID, "permission_code": code}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update permission sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
