package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header carrying the trace ID.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for the trace ID.
	TraceIDKey = "trace_id"
	// ProfileKey is the gin context key for the authenticated tenant profile.
	ProfileKey = "rbac_profile"
	// AuthzDecisionKey holds the enforcement outcome for the request.
	AuthzDecisionKey = "rbac_decision"

	requestContextKey = "request_context"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID   string
	TenantID  string
	ProfileID string
	IP        string
	UserAgent string
}

// EnrichContext adds trace ID and request context to each request
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// SetProfile stores the authenticated profile for downstream handlers.
func SetProfile(c *gin.Context, profile domain.TenantUserProfile) {
	c.Set(ProfileKey, profile)
	reqCtx := GetRequestContext(c)
	reqCtx.TenantID = profile.TenantID
	reqCtx.ProfileID = profile.ID
}

// GetProfile returns the profile stored by RequireAuth.
func GetProfile(c *gin.Context) (domain.TenantUserProfile, bool) {
	value, exists := c.Get(ProfileKey)
	if !exists {
		return domain.TenantUserProfile{}, false
	}
	profile, ok := value.(domain.TenantUserProfile)
	return profile, ok
}
