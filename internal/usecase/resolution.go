package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// resolve computes the effective map of profile from the source-of-truth rows. When trace is
// non-nil every admissible candidate is appended to it, keyed by permission code.
func (s *RBACService) resolve(ctx context.Context, profile domain.TenantUserProfile, trace map[string][]domain.Contribution) (*domain.EffectivePermissions, error) {
	started := time.Now()
	now := s.now()

	result := &domain.EffectivePermissions{
		TenantID:      profile.TenantID,
		UserProfileID: profile.ID,
		Permissions:   make(domain.PermissionMap),
		Metadata:      domain.ResolutionMetadata{ResolvedAt: now},
	}

	if !profile.IsActive {
		return result, nil
	}

	assignments, err := s.designations.ListAssignmentsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("list designation assignments: %w", err)
	}

	designationIDs := make([]string, 0, len(assignments))
	administrator := false
	for _, assignment := range assignments {
		if !assignment.IsEffective(now) {
			continue
		}
		designation := assignment.Designation
		if designation == nil || designation.TenantID != profile.TenantID || !designation.IsActive {
			continue
		}
		if designation.IsSystemAdministratorRole {
			administrator = true
		}
		designationIDs = append(designationIDs, designation.ID)
	}

	result.Metadata.DesignationCount = len(designationIDs)
	if administrator {
		// The administrator grant replaces designations and groups, but overrides still apply.
		if err := s.applyAdministrator(ctx, profile, result, trace); err != nil {
			return nil, err
		}
		if err := s.applyOverrides(ctx, profile, now, result, trace); err != nil {
			return nil, err
		}
		s.observe(true, started)
		return result, nil
	}

	if len(designationIDs) > 0 {
		basePermissions, err := s.designations.ListBasePermissions(ctx, profile.TenantID, designationIDs)
		if err != nil {
			return nil, fmt.Errorf("list designation base permissions: %w", err)
		}
		for _, bp := range basePermissions {
			if !admissible(profile.TenantID, bp.Permission) || !bp.Level.Valid() {
				continue
			}
			merge(result.Permissions, entryFor(bp.Permission, bp.Level, domain.SourceDesignation))
			record(trace, bp.Permission.Code, domain.Contribution{
				Source:     domain.SourceDesignation,
				SourceID:   bp.DesignationID,
				SourceName: bp.DesignationName,
				Level:      bp.Level,
			})
		}
	}

	groupAssignments, err := s.groups.ListAssignmentsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("list group assignments: %w", err)
	}

	groupIDs := make([]string, 0, len(groupAssignments))
	for _, assignment := range groupAssignments {
		if !assignment.IsEffective(now) {
			continue
		}
		if assignment.Group != nil && assignment.Group.TenantID != profile.TenantID {
			continue
		}
		groupIDs = append(groupIDs, assignment.GroupID)
	}

	result.Metadata.GroupCount = len(groupIDs)
	if len(groupIDs) > 0 {
		groupPermissions, err := s.groups.ListGroupPermissions(ctx, profile.TenantID, groupIDs)
		if err != nil {
			return nil, fmt.Errorf("list group permissions: %w", err)
		}
		for _, gp := range groupPermissions {
			if !admissible(profile.TenantID, gp.Permission) || !gp.Level.Valid() {
				continue
			}
			merge(result.Permissions, entryFor(gp.Permission, gp.Level, domain.SourceGroup))
			record(trace, gp.Permission.Code, domain.Contribution{
				Source:     domain.SourceGroup,
				SourceID:   gp.GroupID,
				SourceName: gp.GroupName,
				Level:      gp.Level,
			})
		}
	}

	if err := s.applyOverrides(ctx, profile, now, result, trace); err != nil {
		return nil, err
	}

	s.logger.Debug("resolved effective permissions",
		zap.String("tenant_id", profile.TenantID),
		zap.String("user_profile_id", profile.ID),
		zap.Int("permissions", len(result.Permissions)),
		zap.Int("designation_count", result.Metadata.DesignationCount),
		zap.Int("group_count", result.Metadata.GroupCount),
		zap.Int("override_count", result.Metadata.OverrideCount),
	)

	s.observe(false, started)
	return result, nil
}

func (s *RBACService) applyAdministrator(ctx context.Context, profile domain.TenantUserProfile, result *domain.EffectivePermissions, trace map[string][]domain.Contribution) error {
	entries, err := s.registry.ListActiveByTenant(ctx, profile.TenantID)
	if err != nil {
		return fmt.Errorf("list tenant permissions: %w", err)
	}

	for i := range entries {
		entry := &entries[i]
		if !admissible(profile.TenantID, entry) {
			continue
		}
		result.Permissions[entry.Code] = entryFor(entry, domain.PermissionGranted, domain.SourceAdministrator)
		record(trace, entry.Code, domain.Contribution{
			Source: domain.SourceAdministrator,
			Level:  domain.PermissionGranted,
		})
	}
	result.Metadata.IsAdministrator = true

	s.logger.Debug("administrator short-circuit applied",
		zap.String("tenant_id", profile.TenantID),
		zap.String("user_profile_id", profile.ID),
		zap.Int("permissions", len(result.Permissions)),
	)
	return nil
}

// applyOverrides writes every effective override over result. Overrides are authoritative: they
// replace whatever the administrator grant, designations or groups produced.
func (s *RBACService) applyOverrides(ctx context.Context, profile domain.TenantUserProfile, now time.Time, result *domain.EffectivePermissions, trace map[string][]domain.Contribution) error {
	overrides, err := s.overrides.ListByProfile(ctx, profile.TenantID, profile.ID)
	if err != nil {
		return fmt.Errorf("list permission overrides: %w", err)
	}

	for _, override := range overrides {
		if !override.IsEffective(now) || !admissible(profile.TenantID, override.Permission) || !override.Level.Valid() {
			continue
		}
		result.Permissions[override.Permission.Code] = entryFor(override.Permission, override.Level, domain.SourceOverride)
		result.Metadata.OverrideCount++
		record(trace, override.Permission.Code, domain.Contribution{
			Source:   domain.SourceOverride,
			SourceID: override.ID,
			Level:    override.Level,
			Reason:   override.Reason,
		})
	}
	return nil
}

func (s *RBACService) observe(administrator bool, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveResolution(administrator, time.Since(started))
	}
}

// admissible filters out missing, inactive and foreign-tenant registry rows.
func admissible(tenantID string, permission *domain.PermissionRegistryEntry) bool {
	return permission != nil &&
		permission.IsActive &&
		permission.TenantID == tenantID &&
		permission.Code != ""
}

// merge applies the additive rule for designation and group candidates: granted beats denied,
// and the first candidate wins ties.
func merge(permissions domain.PermissionMap, candidate domain.PermissionEntry) {
	existing, ok := permissions[candidate.Code]
	if !ok || candidate.Level.MorePermissiveThan(existing.Level) {
		permissions[candidate.Code] = candidate
	}
}

func entryFor(permission *domain.PermissionRegistryEntry, level domain.PermissionLevel, source domain.PermissionSource) domain.PermissionEntry {
	return domain.PermissionEntry{
		Code:      permission.Code,
		Level:     level,
		Source:    source,
		RiskLevel: permission.RiskLevel,
		Category:  permission.Category,
	}
}

func record(trace map[string][]domain.Contribution, code string, contribution domain.Contribution) {
	if trace == nil {
		return
	}
	trace[code] = append(trace[code], contribution)
}
