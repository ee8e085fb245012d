package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/transport/http/middleware"
	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

// PermissionResolver reads effective permissions.
type PermissionResolver interface {
	LoadProfile(ctx context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error)
	GetEffectivePermissions(ctx context.Context, profile domain.TenantUserProfile, forceRefresh bool) (*domain.EffectivePermissions, error)
	Explain(ctx context.Context, profile domain.TenantUserProfile) (*domain.PermissionExplanation, error)
	VendorClients(ctx context.Context, tenantID string) ([]domain.VendorRelationship, error)
}

// FeatureLister maps a permission map to reachable features.
type FeatureLister interface {
	GetAccessibleFeatures(permissions domain.PermissionMap) []domain.Feature
}

// PermissionMutator changes the authorisation sources of profiles.
type PermissionMutator interface {
	AssignDesignation(ctx context.Context, actor domain.TenantUserProfile, input usecase.AssignDesignationInput) (*domain.EffectivePermissions, error)
	RevokeDesignation(ctx context.Context, actor domain.TenantUserProfile, profileID, assignmentID string) (*domain.EffectivePermissions, error)
	EnrollInGroup(ctx context.Context, actor domain.TenantUserProfile, input usecase.EnrollInGroupInput) (*domain.EffectivePermissions, error)
	RemoveFromGroup(ctx context.Context, actor domain.TenantUserProfile, profileID, groupID string) (*domain.EffectivePermissions, error)
	SetOverride(ctx context.Context, actor domain.TenantUserProfile, input usecase.SetOverrideInput) (*domain.EffectivePermissions, error)
	ClearOverride(ctx context.Context, actor domain.TenantUserProfile, profileID, permissionCode string) (*domain.EffectivePermissions, error)
	SetPermissionActive(ctx context.Context, actor domain.TenantUserProfile, code string, active bool) error
	InvalidateProfile(ctx context.Context, actor domain.TenantUserProfile, profileID string) (*domain.EffectivePermissions, error)
}

// RBACHandler serves the permission diagnostics and management API.
type RBACHandler struct {
	resolver PermissionResolver
	features FeatureLister
	mutator  PermissionMutator
}

func NewRBACHandler(resolver PermissionResolver, features FeatureLister, mutator PermissionMutator) *RBACHandler {
	return &RBACHandler{resolver: resolver, features: features, mutator: mutator}
}

// RegisterRoutes mounts the handler on r. audit and manage gate the diagnostic and mutating
// routes respectively.
func (h *RBACHandler) RegisterRoutes(r *gin.RouterGroup, audit, manage gin.HandlerFunc) {
	r.GET("/me/permissions", h.MyPermissions)
	r.GET("/me/features", h.MyFeatures)

	r.GET("/profiles/:profileID/explain", audit, h.Explain)
	r.GET("/vendor-clients", audit, h.VendorClients)

	r.POST("/profiles/:profileID/overrides", manage, h.SetOverride)
	r.DELETE("/profiles/:profileID/overrides/:permissionCode", manage, h.ClearOverride)
	r.POST("/profiles/:profileID/designations", manage, h.AssignDesignation)
	r.DELETE("/profiles/:profileID/designations/:assignmentID", manage, h.RevokeDesignation)
	r.POST("/profiles/:profileID/groups", manage, h.EnrollInGroup)
	r.DELETE("/profiles/:profileID/groups/:groupID", manage, h.RemoveFromGroup)
	r.POST("/profiles/:profileID/invalidate", manage, h.Invalidate)
	r.PATCH("/permissions/:permissionCode", manage, h.SetPermissionActive)
}

// MyPermissions godoc
// @Summary Caller's effective permissions
// @Description Resolves the caller's permission map. refresh=true bypasses the cache.
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param refresh query bool false "Force recomputation"
// @Success 200 {object} PermissionsResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/rbac/me/permissions [get]
func (h *RBACHandler) MyPermissions(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	resolved, err := h.resolver.GetEffectivePermissions(c.Request.Context(), caller, refresh)
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	c.JSON(http.StatusOK, newPermissionsResponse(resolved))
}

// MyFeatures godoc
// @Summary Caller's accessible features
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} FeaturesResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/rbac/me/features [get]
func (h *RBACHandler) MyFeatures(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	resolved, err := h.resolver.GetEffectivePermissions(c.Request.Context(), caller, false)
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to resolve permissions")
		return
	}

	features := h.features.GetAccessibleFeatures(resolved.Permissions)
	if features == nil {
		features = []domain.Feature{}
	}
	c.JSON(http.StatusOK, FeaturesResponse{Features: features})
}

// Explain godoc
// @Summary Explain a profile's permissions
// @Description Lists every source considered for each permission code of a profile in the caller's tenant.
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Success 200 {object} domain.PermissionExplanation
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/explain [get]
func (h *RBACHandler) Explain(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	target, err := h.resolver.LoadProfile(c.Request.Context(), caller.TenantID, c.Param("profileID"))
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to load profile")
		return
	}

	explanation, err := h.resolver.Explain(c.Request.Context(), *target)
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to explain permissions")
		return
	}

	c.JSON(http.StatusOK, explanation)
}

// VendorClients godoc
// @Summary Client tenants of the caller's vendor tenant
// @Description Informational only. Vendor staff never inherit permissions from client tenants.
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Success 200 {object} VendorClientsResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/rbac/vendor-clients [get]
func (h *RBACHandler) VendorClients(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	relationships, err := h.resolver.VendorClients(c.Request.Context(), caller.TenantID)
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to list vendor clients")
		return
	}

	resp := VendorClientsResponse{
		VendorTenantID: caller.TenantID,
		Clients:        make([]VendorClientSummary, 0, len(relationships)),
	}
	for _, rel := range relationships {
		resp.Clients = append(resp.Clients, VendorClientSummary{
			ClientTenantID: rel.ClientTenantID,
			Status:         rel.Status,
			StartedAt:      rel.StartedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// SetOverride godoc
// @Summary Grant or deny one permission to a profile
// @Tags RBAC
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param request body SetOverrideRequest true "Override"
// @Success 200 {object} PermissionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/overrides [post]
func (h *RBACHandler) SetOverride(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req SetOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid override payload"))
		return
	}

	resolved, err := h.mutator.SetOverride(c.Request.Context(), caller, usecase.SetOverrideInput{
		ProfileID:      c.Param("profileID"),
		PermissionCode: strings.TrimSpace(req.PermissionCode),
		Level:          domain.PermissionLevel(strings.ToLower(strings.TrimSpace(req.Level))),
		Reason:         req.Reason,
		EffectiveFrom:  req.EffectiveFrom,
		EffectiveTo:    req.EffectiveTo,
	})
	h.respondResolved(c, resolved, err)
}

// ClearOverride godoc
// @Summary Remove a permission override
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param permissionCode path string true "Permission code"
// @Success 200 {object} PermissionsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/overrides/{permissionCode} [delete]
func (h *RBACHandler) ClearOverride(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	resolved, err := h.mutator.ClearOverride(c.Request.Context(), caller, c.Param("profileID"), c.Param("permissionCode"))
	h.respondResolved(c, resolved, err)
}

// AssignDesignation godoc
// @Summary Assign a designation to a profile
// @Tags RBAC
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param request body AssignDesignationRequest true "Assignment"
// @Success 200 {object} PermissionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/designations [post]
func (h *RBACHandler) AssignDesignation(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req AssignDesignationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid designation payload"))
		return
	}

	input := usecase.AssignDesignationInput{
		ProfileID:     c.Param("profileID"),
		DesignationID: strings.TrimSpace(req.DesignationID),
		EffectiveTo:   req.EffectiveTo,
		IsPrimary:     req.IsPrimary,
	}
	if req.EffectiveFrom != nil {
		input.EffectiveFrom = *req.EffectiveFrom
	}

	resolved, err := h.mutator.AssignDesignation(c.Request.Context(), caller, input)
	h.respondResolved(c, resolved, err)
}

// RevokeDesignation godoc
// @Summary Revoke a designation assignment
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param assignmentID path string true "Assignment ID"
// @Success 200 {object} PermissionsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/designations/{assignmentID} [delete]
func (h *RBACHandler) RevokeDesignation(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	resolved, err := h.mutator.RevokeDesignation(c.Request.Context(), caller, c.Param("profileID"), c.Param("assignmentID"))
	h.respondResolved(c, resolved, err)
}

// EnrollInGroup godoc
// @Summary Enrol a profile in a permission group
// @Tags RBAC
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param request body EnrollGroupRequest true "Enrolment"
// @Success 200 {object} PermissionsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/groups [post]
func (h *RBACHandler) EnrollInGroup(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req EnrollGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid group payload"))
		return
	}

	resolved, err := h.mutator.EnrollInGroup(c.Request.Context(), caller, usecase.EnrollInGroupInput{
		ProfileID: c.Param("profileID"),
		GroupID:   strings.TrimSpace(req.GroupID),
		ExpiresAt: req.ExpiresAt,
	})
	h.respondResolved(c, resolved, err)
}

// RemoveFromGroup godoc
// @Summary Remove a profile from a permission group
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Param groupID path string true "Permission group ID"
// @Success 200 {object} PermissionsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/groups/{groupID} [delete]
func (h *RBACHandler) RemoveFromGroup(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	resolved, err := h.mutator.RemoveFromGroup(c.Request.Context(), caller, c.Param("profileID"), c.Param("groupID"))
	h.respondResolved(c, resolved, err)
}

// Invalidate godoc
// @Summary Drop a profile's cached permissions
// @Tags RBAC
// @Produce json
// @Param Authorization header string true "Bearer access token"
// @Param profileID path string true "Tenant user profile ID"
// @Success 200 {object} PermissionsResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/profiles/{profileID}/invalidate [post]
func (h *RBACHandler) Invalidate(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	resolved, err := h.mutator.InvalidateProfile(c.Request.Context(), caller, c.Param("profileID"))
	h.respondResolved(c, resolved, err)
}

// SetPermissionActive godoc
// @Summary Activate or deactivate a permission for the caller's tenant
// @Tags RBAC
// @Accept json
// @Param Authorization header string true "Bearer access token"
// @Param permissionCode path string true "Permission code"
// @Param request body PermissionActivationRequest true "Activation"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/rbac/permissions/{permissionCode} [patch]
func (h *RBACHandler) SetPermissionActive(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}

	var req PermissionActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid activation payload"))
		return
	}

	if err := h.mutator.SetPermissionActive(c.Request.Context(), caller, c.Param("permissionCode"), *req.IsActive); err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to update permission")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RBACHandler) caller(c *gin.Context) (domain.TenantUserProfile, bool) {
	profile, ok := middleware.GetProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return domain.TenantUserProfile{}, false
	}
	return profile, true
}

func (h *RBACHandler) respondResolved(c *gin.Context, resolved *domain.EffectivePermissions, err error) {
	if err != nil {
		RespondWithMappedError(c, err, rbacErrorCases, http.StatusInternalServerError, "failed to update permissions")
		return
	}
	c.JSON(http.StatusOK, newPermissionsResponse(resolved))
}
