package domain

import "time"

// PermissionLevel is the outcome a grant row contributes for a permission code.
type PermissionLevel string

const (
	PermissionGranted PermissionLevel = "granted"
	PermissionDenied  PermissionLevel = "denied"
)

// Valid reports whether the level is granted or denied.
func (l PermissionLevel) Valid() bool {
	return l == PermissionGranted || l == PermissionDenied
}

// MorePermissiveThan reports whether l should replace other during additive merging.
func (l PermissionLevel) MorePermissiveThan(other PermissionLevel) bool {
	return l == PermissionGranted && other != PermissionGranted
}

// RiskLevel classifies how sensitive a permission is.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// PermissionEffect is the registry-level effect of a permission definition.
type PermissionEffect string

const (
	EffectAllow PermissionEffect = "allow"
	EffectDeny  PermissionEffect = "deny"
)

// PermissionRegistryEntry is a tenant-scoped permission definition. The same code defined for two
// tenants is two distinct rows.
type PermissionRegistryEntry struct {
	ID            string
	TenantID      string
	Code          string
	Name          string
	Category      string
	Description   *string
	RiskLevel     RiskLevel
	RequiresScope bool
	IsDelegatable bool
	Effect        PermissionEffect
	IsAuditable   bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Designation is a tenant-scoped role definition.
type Designation struct {
	ID                        string
	TenantID                  string
	Name                      string
	Code                      string
	Level                     int
	CanManageUsers            bool
	IsSystemAdministratorRole bool
	IsActive                  bool
}

// DesignationBasePermission links a designation to a registry entry. Permission is the joined
// registry row and is nil when the row no longer exists.
type DesignationBasePermission struct {
	DesignationID   string
	DesignationName string
	PermissionID    string
	Permission      *PermissionRegistryEntry
	Level           PermissionLevel
}

// AssignmentStatus enumerates designation assignment states.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "Active"
	AssignmentInactive  AssignmentStatus = "Inactive"
	AssignmentSuspended AssignmentStatus = "Suspended"
	AssignmentExpired   AssignmentStatus = "Expired"
)

// UserDesignationAssignment grants a designation to a profile for a date window.
type UserDesignationAssignment struct {
	ID            string
	UserProfileID string
	DesignationID string
	Designation   *Designation
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Status        AssignmentStatus
	IsPrimary     bool
	IsActive      bool
	AssignedBy    *string
}

// IsEffective reports whether the assignment applies on the calendar day of at. The window is
// inclusive on both ends; a nil EffectiveTo is open-ended.
func (a UserDesignationAssignment) IsEffective(at time.Time) bool {
	if !a.IsActive || a.Status != AssignmentActive {
		return false
	}
	return withinDates(at, &a.EffectiveFrom, a.EffectiveTo)
}

// PermissionGroup is a tenant-scoped named bundle of permissions.
type PermissionGroup struct {
	ID          string
	TenantID    string
	Name        string
	Code        string
	Description *string
	IsActive    bool
}

// PermissionGroupPermission links a group to a registry entry.
type PermissionGroupPermission struct {
	GroupID      string
	GroupName    string
	PermissionID string
	Permission   *PermissionRegistryEntry
	Level        PermissionLevel
}

// UserPermissionGroupAssignment enrols a profile in a permission group.
type UserPermissionGroupAssignment struct {
	ID            string
	UserProfileID string
	GroupID       string
	Group         *PermissionGroup
	IsActive      bool
	AssignedAt    time.Time
	ExpiresAt     *time.Time
}

// IsEffective reports whether the enrolment is active and unexpired at the given instant.
func (a UserPermissionGroupAssignment) IsEffective(at time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.Group != nil && !a.Group.IsActive {
		return false
	}
	return a.ExpiresAt == nil || at.Before(*a.ExpiresAt)
}

// UserPermissionOverride is an authoritative per-profile grant or denial of one permission.
type UserPermissionOverride struct {
	ID            string
	UserProfileID string
	PermissionID  string
	Permission    *PermissionRegistryEntry
	Level         PermissionLevel
	Reason        string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	IsActive      bool
	GrantedBy     *string
	CreatedAt     time.Time
}

// IsEffective reports whether the override applies on the calendar day of at.
func (o UserPermissionOverride) IsEffective(at time.Time) bool {
	if !o.IsActive {
		return false
	}
	return withinDates(at, o.EffectiveFrom, o.EffectiveTo)
}

func withinDates(at time.Time, from, to *time.Time) bool {
	day := dateOf(at)
	if from != nil && day.Before(dateOf(*from)) {
		return false
	}
	if to != nil && day.After(dateOf(*to)) {
		return false
	}
	return true
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
