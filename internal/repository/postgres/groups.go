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

var groupColumns = []string{"id", "tenant_id", "group_name", "group_code", "description", "is_active"}

// PermissionGroupRepository reads permission groups and persists enrolments.
type PermissionGroupRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPermissionGroupRepository constructs the repository from a generic executor.
func NewPermissionGroupRepository(exec pgExecutor) *PermissionGroupRepository {
	return &PermissionGroupRepository{exec: exec, builder: newBuilder()}
}

// WithTx binds the repository to the supplied transaction.
func (r *PermissionGroupRepository) WithTx(tx pgx.Tx) *PermissionGroupRepository {
	if tx == nil {
		return r
	}
	return &PermissionGroupRepository{exec: tx, builder: r.builder}
}

var _ port.PermissionGroupRepository = (*PermissionGroupRepository)(nil)

func scanGroup(row rowScanner, extra ...any) (*domain.PermissionGroup, error) {
	var (
		group       domain.PermissionGroup
		description sql.NullString
	)
	dest := append(extra,
		&group.ID,
		&group.TenantID,
		&group.Name,
		&group.Code,
		&description,
		&group.IsActive,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if description.Valid {
		group.Description = &description.String
	}
	return &group, nil
}

// GetByID fetches a group scoped to tenantID.
func (r *PermissionGroupRepository) GetByID(ctx context.Context, tenantID, groupID string) (*domain.PermissionGroup, error) {
	stmt, args, err := r.builder.Select(groupColumns...).
		From("rbac.permission_groups").
		Where(squirrel.Eq{"id": groupID, "tenant_id": tenantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select group sql: %w", err)
	}

	group, err := scanGroup(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan group: %w", err)
	}
	return group, nil
}

// ListAssignmentsByProfile returns the active enrolments of a profile joined with their group.
func (r *PermissionGroupRepository) ListAssignmentsByProfile(ctx context.Context, profileID string) ([]domain.UserPermissionGroupAssignment, error) {
	columns := append([]string{
		"a.id",
		"a.user_profile_id",
		"a.group_id",
		"a.is_active",
		"a.assigned_at",
		"a.expires_at",
	}, qualified("g", groupColumns)...)

	stmt, args, err := r.builder.Select(columns...).
		From("rbac.user_permission_group_assignments a").
		Join("rbac.permission_groups g ON g.id = a.group_id").
		Where(squirrel.Eq{"a.user_profile_id": profileID, "a.is_active": true}).
		OrderBy("a.assigned_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list group assignments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query group assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.UserPermissionGroupAssignment, 0)
	for rows.Next() {
		var (
			assignment domain.UserPermissionGroupAssignment
			expiresAt  sql.NullTime
		)
		group, err := scanGroup(rows,
			&assignment.ID,
			&assignment.UserProfileID,
			&assignment.GroupID,
			&assignment.IsActive,
			&assignment.AssignedAt,
			&expiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan group assignment: %w", err)
		}
		if expiresAt.Valid {
			assignment.ExpiresAt = &expiresAt.Time
		}
		assignment.Group = group
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group assignments: %w", err)
	}
	return assignments, nil
}

// ListGroupPermissions returns the permissions of groupIDs restricted to tenantID's registry.
func (r *PermissionGroupRepository) ListGroupPermissions(ctx context.Context, tenantID string, groupIDs []string) ([]domain.PermissionGroupPermission, error) {
	ids := cleanIDs(groupIDs)
	if len(ids) == 0 {
		return []domain.PermissionGroupPermission{}, nil
	}

	columns := append([]string{"gp.group_id", "g.group_name", "gp.permission_level"},
		qualified("p", permissionColumns)...)

	stmt, args, err := r.builder.Select(columns...).
		From("rbac.permission_group_permissions gp").
		Join("rbac.permission_groups g ON g.id = gp.group_id").
		Join("rbac.permission_registry p ON p.id = gp.permission_id").
		Where(squirrel.Eq{"gp.group_id": ids}).
		Where(squirrel.Eq{"p.tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list group permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query group permissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PermissionGroupPermission, 0)
	for rows.Next() {
		var (
			gp    domain.PermissionGroupPermission
			level string
		)
		permission, err := scanPermission(rows, &gp.GroupID, &gp.GroupName, &level)
		if err != nil {
			return nil, fmt.Errorf("scan group permission: %w", err)
		}
		gp.Level = domain.PermissionLevel(level)
		gp.PermissionID = permission.ID
		gp.Permission = permission
		out = append(out, gp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group permissions: %w", err)
	}
	return out, nil
}

// CreateAssignment enrols a profile in a group.
func (r *PermissionGroupRepository) CreateAssignment(ctx context.Context, assignment domain.UserPermissionGroupAssignment) error {
	var expiresAt any
	if assignment.ExpiresAt != nil {
		expiresAt = *assignment.ExpiresAt
	}

	stmt, args, err := r.builder.Insert("rbac.user_permission_group_assignments").
		Columns("id", "user_profile_id", "group_id", "is_active", "assigned_at", "expires_at").
		Values(
			assignment.ID,
			assignment.UserProfileID,
			assignment.GroupID,
			assignment.IsActive,
			assignment.AssignedAt,
			expiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert group assignment sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeError("insert group assignment", err)
	}
	return nil
}

// DeactivateAssignment ends the active enrolment of profileID in groupID.
func (r *PermissionGroupRepository) DeactivateAssignment(ctx context.Context, profileID, groupID string) error {
	stmt, args, err := r.builder.Update("rbac.user_permission_group_assignments").
		Set("is_active", false).
		Where(squirrel.Eq{"group_id": groupID, "user_profile_id": profileID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate group assignment sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate group assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
