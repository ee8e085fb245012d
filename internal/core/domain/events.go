package domain

import "time"

// InvalidationScope tells consumers how much cached state an event covers.
type InvalidationScope string

const (
	InvalidationScopeProfile InvalidationScope = "profile"
	InvalidationScopeTenant  InvalidationScope = "tenant"
)

// PermissionsInvalidatedEvent represents the payload for rbac.permissions.invalidated messages.
type PermissionsInvalidatedEvent struct {
	EventID       string
	TenantID      string
	UserProfileID string
	Scope         InvalidationScope
	Reason        string
	ChangedBy     string
	OccurredAt    time.Time
}
