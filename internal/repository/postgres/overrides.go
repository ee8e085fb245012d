package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

// OverrideRepository persists per-profile permission overrides. A profile holds at most one
// override row per permission; Upsert replaces it.
type OverrideRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOverrideRepository constructs the repository from a generic executor.
func NewOverrideRepository(exec pgExecutor) *OverrideRepository {
	return &OverrideRepository{exec: exec, builder: newBuilder()}
}

// WithTx binds the repository to the supplied transaction.
func (r *OverrideRepository) WithTx(tx pgx.Tx) *OverrideRepository {
	if tx == nil {
		return r
	}
	return &OverrideRepository{exec: tx, builder: r.builder}
}

var _ port.OverrideRepository = (*OverrideRepository)(nil)

// ListByProfile returns active overrides of profileID joined with tenantID's registry rows.
func (r *OverrideRepository) ListByProfile(ctx context.Context, tenantID, profileID string) ([]domain.UserPermissionOverride, error) {
	columns := append([]string{
		"o.id",
		"o.user_profile_id",
		"o.permission_level",
		"o.override_reason",
		"o.effective_from",
		"o.effective_to",
		"o.is_active",
		"o.granted_by",
		"o.created_at",
	}, qualified("p", permissionColumns)...)

	stmt, args, err := r.builder.Select(columns...).
		From("rbac.user_permission_overrides o").
		Join("rbac.permission_registry p ON p.id = o.permission_id").
		Where(squirrel.Eq{"o.user_profile_id": profileID, "o.is_active": true}).
		Where(squirrel.Eq{"p.tenant_id": tenantID}).
		OrderBy("o.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list overrides sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	overrides := make([]domain.UserPermissionOverride, 0)
	for rows.Next() {
		var (
			override      domain.UserPermissionOverride
			level         string
			reason        sql.NullString
			effectiveFrom sql.NullTime
			effectiveTo   sql.NullTime
			grantedBy     sql.NullString
		)
		permission, err := scanPermission(rows,
			&override.ID,
			&override.UserProfileID,
			&level,
			&reason,
			&effectiveFrom,
			&effectiveTo,
			&override.IsActive,
			&grantedBy,
			&override.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}

		override.Level = domain.PermissionLevel(level)
		override.Reason = reason.String
		if effectiveFrom.Valid {
			override.EffectiveFrom = &effectiveFrom.Time
		}
		if effectiveTo.Valid {
			override.EffectiveTo = &effectiveTo.Time
		}
		if grantedBy.Valid {
			override.GrantedBy = &grantedBy.String
		}
		override.PermissionID = permission.ID
		override.Permission = permission
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}

// Upsert inserts an override or replaces the existing row for the same profile and permission.
func (r *OverrideRepository) Upsert(ctx context.Context, override domain.UserPermissionOverride) error {
	var effectiveFrom, effectiveTo any
	if override.EffectiveFrom != nil {
		effectiveFrom = *override.EffectiveFrom
	}
	if override.EffectiveTo != nil {
		effectiveTo = *override.EffectiveTo
	}

	stmt, args, err := r.builder.Insert("rbac.user_permission_overrides").
		Columns(
			"id",
			"user_profile_id",
			"permission_id",
			"permission_level",
			"override_reason",
			"effective_from",
			"effective_to",
			"is_active",
			"granted_by",
			"created_at",
		).
		Values(
			override.ID,
			override.UserProfileID,
			override.PermissionID,
			string(override.Level),
			override.Reason,
			effectiveFrom,
			effectiveTo,
			override.IsActive,
			nullableString(override.GrantedBy),
			override.CreatedAt,
		).
		Suffix(`ON CONFLICT (user_profile_id, permission_id) DO UPDATE SET
			permission_level = EXCLUDED.permission_level,
			override_reason = EXCLUDED.override_reason,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to,
			is_active = EXCLUDED.is_active,
			granted_by = EXCLUDED.granted_by,
			created_at = EXCLUDED.created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert override sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// Deactivate clears the active override of permissionID for profileID.
func (r *OverrideRepository) Deactivate(ctx context.Context, profileID, permissionID string) error {
	stmt, args, err := r.builder.Update("rbac.user_permission_overrides").
		Set("is_active", false).
		Where(squirrel.Eq{"permission_id": permissionID, "user_profile_id": profileID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate override sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
