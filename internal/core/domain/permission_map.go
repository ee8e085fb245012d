package domain

import (
	"sort"
	"time"
)

// PermissionSource identifies which layer produced a resolved permission.
type PermissionSource string

const (
	SourceDesignation   PermissionSource = "designation"
	SourceGroup         PermissionSource = "group"
	SourceOverride      PermissionSource = "override"
	SourceAdministrator PermissionSource = "administrator"
)

// PermissionEntry is the resolved descriptor for one permission code.
type PermissionEntry struct {
	Code      string           `json:"code"`
	Level     PermissionLevel  `json:"level"`
	Source    PermissionSource `json:"source"`
	RiskLevel RiskLevel        `json:"risk_level"`
	Category  string           `json:"category"`
}

// Granted reports whether the entry allows the permission.
func (e PermissionEntry) Granted() bool {
	return e.Level == PermissionGranted
}

// PermissionMap maps permission codes to their resolved entries. Denied entries stay in the map
// so callers can tell an explicit revocation from an absent permission.
type PermissionMap map[string]PermissionEntry

// Has reports whether code is present and granted.
func (m PermissionMap) Has(code string) bool {
	entry, ok := m[code]
	return ok && entry.Granted()
}

// HasAny reports whether at least one of codes is granted.
func (m PermissionMap) HasAny(codes ...string) bool {
	for _, code := range codes {
		if m.Has(code) {
			return true
		}
	}
	return false
}

// GrantedCodes returns the granted permission codes in lexical order.
func (m PermissionMap) GrantedCodes() []string {
	codes := make([]string, 0, len(m))
	for code, entry := range m {
		if entry.Granted() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// ResolutionMetadata describes how an effective permission map was produced.
type ResolutionMetadata struct {
	DesignationCount int       `json:"designation_count"`
	GroupCount       int       `json:"group_count"`
	OverrideCount    int       `json:"override_count"`
	IsAdministrator  bool      `json:"is_administrator"`
	ResolvedAt       time.Time `json:"resolved_at"`
	FromCache        bool      `json:"from_cache"`
}

// EffectivePermissions is the resolved permission set of one profile within one tenant.
type EffectivePermissions struct {
	TenantID      string             `json:"tenant_id"`
	UserProfileID string             `json:"user_profile_id"`
	Permissions   PermissionMap      `json:"permissions"`
	Metadata      ResolutionMetadata `json:"metadata"`
}

// Contribution records one candidate considered while resolving a permission code.
type Contribution struct {
	Source     PermissionSource `json:"source"`
	SourceID   string           `json:"source_id"`
	SourceName string           `json:"source_name,omitempty"`
	Level      PermissionLevel  `json:"level"`
	Reason     string           `json:"reason,omitempty"`
}

// PermissionExplanation pairs an effective map with the candidates behind each code.
type PermissionExplanation struct {
	Effective     EffectivePermissions      `json:"effective"`
	Contributions map[string][]Contribution `json:"contributions"`
}
