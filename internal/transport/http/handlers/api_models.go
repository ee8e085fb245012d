package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// PermissionsResponse is the effective permission map of one profile.
type PermissionsResponse struct {
	TenantID      string                    `json:"tenant_id"`
	UserProfileID string                    `json:"user_profile_id"`
	Permissions   domain.PermissionMap      `json:"permissions"`
	Granted       []string                  `json:"granted"`
	Metadata      domain.ResolutionMetadata `json:"metadata"`
}

func newPermissionsResponse(resolved *domain.EffectivePermissions) PermissionsResponse {
	permissions := resolved.Permissions
	if permissions == nil {
		permissions = domain.PermissionMap{}
	}
	return PermissionsResponse{
		TenantID:      resolved.TenantID,
		UserProfileID: resolved.UserProfileID,
		Permissions:   permissions,
		Granted:       permissions.GrantedCodes(),
		Metadata:      resolved.Metadata,
	}
}

// FeaturesResponse lists the features the caller can reach.
type FeaturesResponse struct {
	Features []domain.Feature `json:"features"`
}

// VendorClientSummary describes one client tenant served by the caller's vendor tenant.
type VendorClientSummary struct {
	ClientTenantID string                          `json:"client_tenant_id"`
	Status         domain.VendorRelationshipStatus `json:"status"`
	StartedAt      time.Time                       `json:"started_at"`
}

// VendorClientsResponse lists vendor relationships. It carries no permissions.
type VendorClientsResponse struct {
	VendorTenantID string                `json:"vendor_tenant_id"`
	Clients        []VendorClientSummary `json:"clients"`
}

// SetOverrideRequest grants or denies one permission to a profile.
type SetOverrideRequest struct {
	PermissionCode string     `json:"permission_code" binding:"required"`
	Level          string     `json:"level" binding:"required"`
	Reason         string     `json:"reason" binding:"required"`
	EffectiveFrom  *time.Time `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time `json:"effective_to,omitempty"`
}

// AssignDesignationRequest grants a designation to a profile.
type AssignDesignationRequest struct {
	DesignationID string     `json:"designation_id" binding:"required"`
	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	IsPrimary     bool       `json:"is_primary"`
}

// EnrollGroupRequest adds a profile to a permission group.
type EnrollGroupRequest struct {
	GroupID   string     `json:"group_id" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PermissionActivationRequest toggles a registry entry.
type PermissionActivationRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
