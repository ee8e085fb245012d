package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	appLogger "github.com/Reportify/teleopsold-sub002/internal/infra/logger"
)

// PermissionChecker answers whether a profile holds at least one of the given codes.
type PermissionChecker interface {
	HasAnyPermission(ctx context.Context, profile domain.TenantUserProfile, codes ...string) (bool, error)
}

// EndpointPermissions maps a request to the permission codes that unlock it.
type EndpointPermissions interface {
	RequiredPermissionsForEndpoint(method, path string) ([]string, bool)
}

// DenialRecorder counts rejected requests.
type DenialRecorder interface {
	IncDenied(route string)
}

// Authorization outcomes recorded under AuthzDecisionKey.
const (
	DecisionPublic   = "public"
	DecisionUnmapped = "unmapped"
	DecisionAllowed  = "allowed"
	DecisionDenied   = "denied"
	DecisionError    = "error"
)

// PermissionDeniedResponse is returned with 403. It names the required codes only and never the
// caller's own permissions.
type PermissionDeniedResponse struct {
	Error               string   `json:"error"`
	RequiredPermissions []string `json:"required_permissions"`
	TraceID             string   `json:"trace_id,omitempty"`
}

// Enforcer gates API routes on the caller's effective permissions.
type Enforcer struct {
	checker     PermissionChecker
	endpoints   EndpointPermissions
	denials     DenialRecorder
	publicPaths []string
	logger      *zap.Logger
}

// NewEnforcer constructs an Enforcer. endpoints may be nil when only RequirePermission is used.
func NewEnforcer(checker PermissionChecker, endpoints EndpointPermissions) *Enforcer {
	return &Enforcer{
		checker:   checker,
		endpoints: endpoints,
		logger:    zap.NewNop(),
	}
}

// WithDenialRecorder attaches a denial counter.
func (e *Enforcer) WithDenialRecorder(denials DenialRecorder) *Enforcer {
	e.denials = denials
	return e
}

// WithPublicPaths excludes paths from endpoint enforcement.
func (e *Enforcer) WithPublicPaths(paths []string) *Enforcer {
	e.publicPaths = paths
	return e
}

// WithLogger attaches a logger.
func (e *Enforcer) WithLogger(logger *zap.Logger) *Enforcer {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// EnforceEndpoints looks the request up in the endpoint table and requires any one of the mapped
// permissions. Requests without a mapping are allowed through.
func (e *Enforcer) EnforceEndpoints() gin.HandlerFunc {
	return func(c *gin.Context) {
		if e.endpoints == nil || isPublicPath(c.Request.URL.Path, e.publicPaths) {
			c.Set(AuthzDecisionKey, DecisionPublic)
			c.Next()
			return
		}

		required, mapped := e.endpoints.RequiredPermissionsForEndpoint(c.Request.Method, c.Request.URL.Path)
		if !mapped || len(required) == 0 {
			c.Set(AuthzDecisionKey, DecisionUnmapped)
			c.Next()
			return
		}

		if e.authorize(c, required) {
			c.Next()
		}
	}
}

// RequirePermission requires any one of codes regardless of the endpoint table.
func (e *Enforcer) RequirePermission(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e.authorize(c, codes) {
			c.Next()
		}
	}
}

// authorize aborts the request and reports false unless the caller holds one of required.
func (e *Enforcer) authorize(c *gin.Context, required []string) bool {
	profile, ok := GetProfile(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "authentication required"))
		return false
	}

	ctx := c.Request.Context()
	log := appLogger.WithContext(ctx, e.logger)

	allowed, err := e.checker.HasAnyPermission(ctx, profile, required...)
	if err != nil {
		log.Error("permission check failed",
			zap.String("tenant_id", profile.TenantID),
			zap.String("user_profile_id", profile.ID),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.Set(AuthzDecisionKey, DecisionError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authorization check failed"))
		return false
	}
	if allowed {
		c.Set(AuthzDecisionKey, DecisionAllowed)
		return true
	}
	c.Set(AuthzDecisionKey, DecisionDenied)

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	if e.denials != nil {
		e.denials.IncDenied(route)
	}
	log.Info("permission denied",
		zap.String("tenant_id", profile.TenantID),
		zap.String("user_profile_id", profile.ID),
		zap.String("route", route),
		zap.Strings("required_permissions", required),
	)

	c.AbortWithStatusJSON(http.StatusForbidden, PermissionDeniedResponse{
		Error:               "permission denied",
		RequiredPermissions: required,
		TraceID:             GetTraceID(c),
	})
	return false
}
