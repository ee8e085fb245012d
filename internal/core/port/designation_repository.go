package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// DesignationRepository exposes designations, their base permissions and user assignments.
type DesignationRepository interface {
	GetByID(ctx context.Context, tenantID, designationID string) (*domain.Designation, error)
	ListAssignmentsByProfile(ctx context.Context, profileID string) ([]domain.UserDesignationAssignment, error)
	// ListBasePermissions returns base permissions of the designations whose registry row belongs
	// to tenantID.
	ListBasePermissions(ctx context.Context, tenantID string, designationIDs []string) ([]domain.DesignationBasePermission, error)
	CreateAssignment(ctx context.Context, assignment domain.UserDesignationAssignment) error
	DeactivateAssignment(ctx context.Context, profileID, assignmentID string) error
}
