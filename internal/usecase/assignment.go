package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

var (
	// ErrPermissionNotFound indicates the permission code is not registered for the tenant.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrPermissionInactive indicates the permission exists but is deactivated.
	ErrPermissionInactive = errors.New("permission is inactive")
	// ErrDesignationNotFound indicates the designation does not exist within the tenant.
	ErrDesignationNotFound = errors.New("designation not found")
	// ErrGroupNotFound indicates the permission group does not exist within the tenant.
	ErrGroupNotFound = errors.New("permission group not found")
	// ErrAlreadyEnrolled indicates the profile already holds an active enrolment in the group.
	ErrAlreadyEnrolled = errors.New("profile already enrolled in group")
	// ErrAssignmentNotFound indicates there is no active assignment to remove.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrOverrideNotFound indicates there is no active override to clear.
	ErrOverrideNotFound = errors.New("override not found")
	// ErrInvalidPermissionLevel indicates a level other than granted or denied.
	ErrInvalidPermissionLevel = errors.New("invalid permission level")
	// ErrReasonRequired indicates an override was submitted without a justification.
	ErrReasonRequired = errors.New("override reason is required")
	// ErrInvalidDateRange indicates an end date before the start date.
	ErrInvalidDateRange = errors.New("effective_to precedes effective_from")
)

// AssignDesignationInput describes a designation grant.
type AssignDesignationInput struct {
	ProfileID     string
	DesignationID string
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsPrimary     bool
}

// EnrollInGroupInput describes a permission group enrolment.
type EnrollInGroupInput struct {
	ProfileID string
	GroupID   string
	ExpiresAt *time.Time
}

// SetOverrideInput describes a per-profile grant or denial.
type SetOverrideInput struct {
	ProfileID      string
	PermissionCode string
	Level          domain.PermissionLevel
	Reason         string
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
}

// AssignmentService mutates the authorisation sources of tenant profiles. Every mutation drops
// stale cached maps, announces the change on the event bus and returns the refreshed map.
type AssignmentService struct {
	rbac         *RBACService
	registry     port.PermissionRegistryRepository
	designations port.DesignationRepository
	groups       port.PermissionGroupRepository
	overrides    port.OverrideRepository
	publisher    port.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(
	rbac *RBACService,
	registry port.PermissionRegistryRepository,
	designations port.DesignationRepository,
	groups port.PermissionGroupRepository,
	overrides port.OverrideRepository,
) *AssignmentService {
	return &AssignmentService{
		rbac:         rbac,
		registry:     registry,
		designations: designations,
		groups:       groups,
		overrides:    overrides,
		logger:       zap.NewNop(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithEventPublisher attaches the publisher used for invalidation events.
func (s *AssignmentService) WithEventPublisher(publisher port.EventPublisher) *AssignmentService {
	s.publisher = publisher
	return s
}

// WithLogger attaches a logger.
func (s *AssignmentService) WithLogger(logger *zap.Logger) *AssignmentService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source.
func (s *AssignmentService) WithClock(clock func() time.Time) *AssignmentService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// AssignDesignation grants a designation to a profile of the actor's tenant.
func (s *AssignmentService) AssignDesignation(ctx context.Context, actor domain.TenantUserProfile, input AssignDesignationInput) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, input.ProfileID)
	if err != nil {
		return nil, err
	}

	designation, err := s.designations.GetByID(ctx, actor.TenantID, strings.TrimSpace(input.DesignationID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDesignationNotFound
		}
		return nil, fmt.Errorf("lookup designation: %w", err)
	}
	if designation.TenantID != actor.TenantID || !designation.IsActive {
		return nil, ErrDesignationNotFound
	}

	from := input.EffectiveFrom
	if from.IsZero() {
		from = s.now()
	}
	if input.EffectiveTo != nil && input.EffectiveTo.Before(from) {
		return nil, ErrInvalidDateRange
	}

	assignedBy := actor.ID
	assignment := domain.UserDesignationAssignment{
		ID:            uuid.NewString(),
		UserProfileID: target.ID,
		DesignationID: designation.ID,
		Designation:   designation,
		EffectiveFrom: from,
		EffectiveTo:   input.EffectiveTo,
		Status:        domain.AssignmentActive,
		IsPrimary:     input.IsPrimary,
		IsActive:      true,
		AssignedBy:    &assignedBy,
	}
	if err := s.designations.CreateAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("create designation assignment: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "designation_assigned")
}

// RevokeDesignation deactivates a designation assignment of a profile.
func (s *AssignmentService) RevokeDesignation(ctx context.Context, actor domain.TenantUserProfile, profileID, assignmentID string) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, profileID)
	if err != nil {
		return nil, err
	}

	if err := s.designations.DeactivateAssignment(ctx, target.ID, strings.TrimSpace(assignmentID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("deactivate designation assignment: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "designation_revoked")
}

// EnrollInGroup adds a profile to a permission group of the actor's tenant.
func (s *AssignmentService) EnrollInGroup(ctx context.Context, actor domain.TenantUserProfile, input EnrollInGroupInput) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, input.ProfileID)
	if err != nil {
		return nil, err
	}

	group, err := s.groups.GetByID(ctx, actor.TenantID, strings.TrimSpace(input.GroupID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("lookup permission group: %w", err)
	}
	if group.TenantID != actor.TenantID || !group.IsActive {
		return nil, ErrGroupNotFound
	}

	if err := s.retireExpiredEnrolment(ctx, target.ID, group.ID); err != nil {
		return nil, err
	}

	assignment := domain.UserPermissionGroupAssignment{
		ID:            uuid.NewString(),
		UserProfileID: target.ID,
		GroupID:       group.ID,
		Group:         group,
		IsActive:      true,
		AssignedAt:    s.now(),
		ExpiresAt:     input.ExpiresAt,
	}
	if err := s.groups.CreateAssignment(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("create group assignment: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "group_enrolled")
}

// retireExpiredEnrolment deactivates a lapsed enrolment still flagged active so the profile can
// be enrolled again. A live enrolment is left for the insert to reject.
func (s *AssignmentService) retireExpiredEnrolment(ctx context.Context, profileID, groupID string) error {
	existing, err := s.groups.ListAssignmentsByProfile(ctx, profileID)
	if err != nil {
		return fmt.Errorf("list group assignments: %w", err)
	}

	now := s.now()
	for _, assignment := range existing {
		if assignment.GroupID != groupID || !assignment.IsActive || assignment.IsEffective(now) {
			continue
		}
		if err := s.groups.DeactivateAssignment(ctx, profileID, groupID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("retire expired group assignment: %w", err)
		}
		s.logger.Debug("retired expired group enrolment",
			zap.String("user_profile_id", profileID),
			zap.String("group_id", groupID),
			zap.String("assignment_id", assignment.ID),
		)
		return nil
	}
	return nil
}

// RemoveFromGroup ends the enrolment of a profile in a group.
func (s *AssignmentService) RemoveFromGroup(ctx context.Context, actor domain.TenantUserProfile, profileID, groupID string) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, profileID)
	if err != nil {
		return nil, err
	}

	if err := s.groups.DeactivateAssignment(ctx, target.ID, strings.TrimSpace(groupID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("deactivate group assignment: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "group_removed")
}

// SetOverride creates or replaces the override of one permission for a profile.
func (s *AssignmentService) SetOverride(ctx context.Context, actor domain.TenantUserProfile, input SetOverrideInput) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	if !input.Level.Valid() {
		return nil, ErrInvalidPermissionLevel
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if input.EffectiveFrom != nil && input.EffectiveTo != nil && input.EffectiveTo.Before(*input.EffectiveFrom) {
		return nil, ErrInvalidDateRange
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, input.ProfileID)
	if err != nil {
		return nil, err
	}

	permission, err := s.lookupPermission(ctx, actor.TenantID, input.PermissionCode)
	if err != nil {
		return nil, err
	}
	if !permission.IsActive {
		return nil, ErrPermissionInactive
	}

	grantedBy := actor.ID
	override := domain.UserPermissionOverride{
		ID:            uuid.NewString(),
		UserProfileID: target.ID,
		PermissionID:  permission.ID,
		Permission:    permission,
		Level:         input.Level,
		Reason:        reason,
		EffectiveFrom: input.EffectiveFrom,
		EffectiveTo:   input.EffectiveTo,
		IsActive:      true,
		GrantedBy:     &grantedBy,
		CreatedAt:     s.now(),
	}
	if err := s.overrides.Upsert(ctx, override); err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "override_set")
}

// ClearOverride deactivates the override of one permission for a profile.
func (s *AssignmentService) ClearOverride(ctx context.Context, actor domain.TenantUserProfile, profileID, permissionCode string) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, profileID)
	if err != nil {
		return nil, err
	}

	permission, err := s.lookupPermission(ctx, actor.TenantID, permissionCode)
	if err != nil {
		return nil, err
	}

	if err := s.overrides.Deactivate(ctx, target.ID, permission.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOverrideNotFound
		}
		return nil, fmt.Errorf("deactivate override: %w", err)
	}

	return s.profileChanged(ctx, actor, *target, "override_cleared")
}

// InvalidateProfile drops the cached map of a profile without changing its sources and announces
// the invalidation to other instances.
func (s *AssignmentService) InvalidateProfile(ctx context.Context, actor domain.TenantUserProfile, profileID string) (*domain.EffectivePermissions, error) {
	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}

	target, err := s.rbac.LoadProfile(ctx, actor.TenantID, profileID)
	if err != nil {
		return nil, err
	}

	return s.profileChanged(ctx, actor, *target, "manual_invalidation")
}

// SetPermissionActive toggles a registry entry of the actor's tenant. Every cached map of the
// tenant is dropped because any profile may hold the permission.
func (s *AssignmentService) SetPermissionActive(ctx context.Context, actor domain.TenantUserProfile, code string, active bool) error {
	if err := s.authorize(ctx, actor); err != nil {
		return err
	}

	permission, err := s.lookupPermission(ctx, actor.TenantID, code)
	if err != nil {
		return err
	}

	if err := s.registry.SetActive(ctx, actor.TenantID, permission.Code, active); err != nil {
		return fmt.Errorf("update permission activation: %w", err)
	}

	if err := s.rbac.InvalidateTenant(ctx, actor.TenantID); err != nil {
		s.logger.Warn("tenant cache invalidation failed",
			zap.String("tenant_id", actor.TenantID),
			zap.Error(err),
		)
	}

	reason := "permission_deactivated"
	if active {
		reason = "permission_activated"
	}
	s.publish(ctx, domain.PermissionsInvalidatedEvent{
		TenantID:  actor.TenantID,
		Scope:     domain.InvalidationScopeTenant,
		Reason:    reason,
		ChangedBy: actor.ID,
	})
	return nil
}

func (s *AssignmentService) authorize(ctx context.Context, actor domain.TenantUserProfile) error {
	if strings.TrimSpace(actor.TenantID) == "" {
		return ErrInvalidTenant
	}
	if strings.TrimSpace(actor.ID) == "" {
		return ErrPermissionDenied
	}

	allowed, err := s.rbac.HasPermission(ctx, actor, PermissionRBACManage)
	if err != nil {
		return fmt.Errorf("check actor permissions: %w", err)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}

func (s *AssignmentService) lookupPermission(ctx context.Context, tenantID, code string) (*domain.PermissionRegistryEntry, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrPermissionNotFound
	}

	permission, err := s.registry.GetByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("lookup permission %q: %w", code, err)
	}
	if permission.TenantID != tenantID {
		return nil, ErrPermissionNotFound
	}
	return permission, nil
}

// profileChanged invalidates, publishes and force-refreshes after a profile-scoped mutation.
// Cache and bus failures are logged; the source rows are already committed.
func (s *AssignmentService) profileChanged(ctx context.Context, actor, target domain.TenantUserProfile, reason string) (*domain.EffectivePermissions, error) {
	if err := s.rbac.Invalidate(ctx, target.TenantID, target.ID); err != nil {
		s.logger.Warn("profile cache invalidation failed",
			zap.String("tenant_id", target.TenantID),
			zap.String("user_profile_id", target.ID),
			zap.Error(err),
		)
	}

	s.publish(ctx, domain.PermissionsInvalidatedEvent{
		TenantID:      target.TenantID,
		UserProfileID: target.ID,
		Scope:         domain.InvalidationScopeProfile,
		Reason:        reason,
		ChangedBy:     actor.ID,
	})

	s.logger.Info("permission sources changed",
		zap.String("tenant_id", target.TenantID),
		zap.String("user_profile_id", target.ID),
		zap.String("changed_by", actor.ID),
		zap.String("reason", reason),
	)

	return s.rbac.GetEffectivePermissions(ctx, target, true)
}

func (s *AssignmentService) publish(ctx context.Context, event domain.PermissionsInvalidatedEvent) {
	if s.publisher == nil {
		return
	}
	event.EventID = uuid.NewString()
	event.OccurredAt = s.now()
	if err := s.publisher.PublishPermissionsInvalidated(ctx, event); err != nil {
		s.logger.Warn("publish permissions invalidated event failed",
			zap.String("tenant_id", event.TenantID),
			zap.String("user_profile_id", event.UserProfileID),
			zap.Error(err),
		)
	}
}
