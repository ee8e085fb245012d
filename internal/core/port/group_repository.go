package port

import (
	"context"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// PermissionGroupRepository exposes permission groups and enrolments.
type PermissionGroupRepository interface {
	GetByID(ctx context.Context, tenantID, groupID string) (*domain.PermissionGroup, error)
	ListAssignmentsByProfile(ctx context.Context, profileID string) ([]domain.UserPermissionGroupAssignment, error)
	ListGroupPermissions(ctx context.Context, tenantID string, groupIDs []string) ([]domain.PermissionGroupPermission, error)
	CreateAssignment(ctx context.Context, assignment domain.UserPermissionGroupAssignment) error
	DeactivateAssignment(ctx context.Context, profileID, groupID string) error
}
