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

var designationColumns = []string{
	"id",
	"tenant_id",
	"designation_name",
	"designation_code",
	"designation_level",
	"can_manage_users",
	"is_system_administrator_role",
	"is_active",
}

// DesignationRepository reads designations and persists designation assignments.
type DesignationRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDesignationRepository constructs the repository from a generic executor.
func NewDesignationRepository(exec pgExecutor) *DesignationRepository {
	return &DesignationRepository{exec: exec, builder: newBuilder()}
}

// WithTx binds the repository to the supplied transaction.
func (r *DesignationRepository) WithTx(tx pgx.Tx) *DesignationRepository {
	if tx == nil {
		return r
	}
	return &DesignationRepository{exec: tx, builder: r.builder}
}

var _ port.DesignationRepository = (*DesignationRepository)(nil)

func scanDesignation(row rowScanner, extra ...any) (*domain.Designation, error) {
	var designation domain.Designation
	dest := append(extra,
		&designation.ID,
		&designation.TenantID,
		&designation.Name,
		&designation.Code,
		&designation.Level,
		&designation.CanManageUsers,
		&designation.IsSystemAdministratorRole,
		&designation.IsActive,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &designation, nil
}

// GetByID fetches a designation scoped to tenantID.
func (r *DesignationRepository) GetByID(ctx context.Context, tenantID, designationID string) (*domain.Designation, error) {
	stmt, args, err := r.builder.Select(designationColumns...).
		From("rbac.designations").
		Where(squirrel.Eq{"id": designationID, "tenant_id": tenantID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select designation sql: %w", err)
	}

	designation, err := scanDesignation(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan designation: %w", err)
	}
	return designation, nil
}

// ListAssignmentsByProfile returns the active assignments of a profile joined with their designation.
func (r *DesignationRepository) ListAssignmentsByProfile(ctx context.Context, profileID string) ([]domain.UserDesignationAssignment, error) {
	columns := append([]string{
		"a.id",
		"a.user_profile_id",
		"a.designation_id",
		"a.effective_from",
		"a.effective_to",
		"a.assignment_status",
		"a.is_primary",
		"a.is_active",
		"a.assigned_by",
	}, qualified("d", designationColumns)...)

	stmt, args, err := r.builder.Select(columns...).
		From("rbac.user_designation_assignments a").
		Join("rbac.designations d ON d.id = a.designation_id").
		Where(squirrel.Eq{"a.user_profile_id": profileID, "a.is_active": true}).
		OrderBy("a.is_primary DESC", "a.effective_from ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list designation assignments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query designation assignments: %w", err)
	}
	defer rows.Close()

	assignments := make([]domain.UserDesignationAssignment, 0)
	for rows.Next() {
		var (
			assignment  domain.UserDesignationAssignment
			effectiveTo sql.NullTime
			status      string
			assignedBy  sql.NullString
		)
		designation, err := scanDesignation(rows,
			&assignment.ID,
			&assignment.UserProfileID,
			&assignment.DesignationID,
			&assignment.EffectiveFrom,
			&effectiveTo,
			&status,
			&assignment.IsPrimary,
			&assignment.IsActive,
			&assignedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan designation assignment: %w", err)
		}
		if effectiveTo.Valid {
			assignment.EffectiveTo = &effectiveTo.Time
		}
		if assignedBy.Valid {
			assignment.AssignedBy = &assignedBy.String
		}
		assignment.Status = domain.AssignmentStatus(status)
		assignment.Designation = designation
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate designation assignments: %w", err)
	}
	return assignments, nil
}

// ListBasePermissions returns the base permissions of designationIDs whose registry rows belong to
// tenantID. Rows pointing at another tenant's registry are never returned.
func (r *DesignationRepository) ListBasePermissions(ctx context.Context, tenantID string, designationIDs []string) ([]domain.DesignationBasePermission, error) {
	ids := cleanIDs(designationIDs)
	if len(ids) == 0 {
		return []domain.DesignationBasePermission{}, nil
	}

	columns := append([]string{"bp.designation_id", "d.designation_name", "bp.permission_level"},
		qualified("p", permissionColumns)...)

	stmt, args, err := r.builder.Select(columns...).
		From("rbac.designation_base_permissions bp").
		Join("rbac.designations d ON d.id = bp.designation_id").
		Join("rbac.permission_registry p ON p.id = bp.permission_id").
		Where(squirrel.Eq{"bp.designation_id": ids}).
		Where(squirrel.Eq{"p.tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list base permissions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query base permissions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DesignationBasePermission, 0)
	for rows.Next() {
		var (
			bp    domain.DesignationBasePermission
			level string
		)
		permission, err := scanPermission(rows, &bp.DesignationID, &bp.DesignationName, &level)
		if err != nil {
			return nil, fmt.Errorf("scan base permission: %w", err)
		}
		bp.Level = domain.PermissionLevel(level)
		bp.PermissionID = permission.ID
		bp.Permission = permission
		out = append(out, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate base permissions: %w", err)
	}
	return out, nil
}

// CreateAssignment inserts a designation assignment.
func (r *DesignationRepository) CreateAssignment(ctx context.Context, assignment domain.UserDesignationAssignment) error {
	var effectiveTo any
	if assignment.EffectiveTo != nil {
		effectiveTo = *assignment.EffectiveTo
	}

	stmt, args, err := r.builder.Insert("rbac.user_designation_assignments").
		Columns(
			"id",
			"user_profile_id",
			"designation_id",
			"effective_from",
			"effective_to",
			"assignment_status",
			"is_primary",
			"is_active",
			"assigned_by",
		).
		Values(
			assignment.ID,
			assignment.UserProfileID,
			assignment.DesignationID,
			assignment.EffectiveFrom,
			effectiveTo,
			string(assignment.Status),
			assignment.IsPrimary,
			assignment.IsActive,
			nullableString(assignment.AssignedBy),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert designation assignment sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeError("insert designation assignment", err)
	}
	return nil
}

// DeactivateAssignment marks an active assignment of profileID inactive.
func (r *DesignationRepository) DeactivateAssignment(ctx context.Context, profileID, assignmentID string) error {
	stmt, args, err := r.builder.Update("rbac.user_designation_assignments").
		Set("is_active", false).
		Set("assignment_status", string(domain.AssignmentInactive)).
		Where(squirrel.Eq{"id": assignmentID, "user_profile_id": profileID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate designation assignment sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate designation assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
