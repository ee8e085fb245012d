package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/infra/security"
	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

// IdentityVerifier validates bearer tokens issued by the identity service.
type IdentityVerifier interface {
	Verify(raw string) (*security.IdentityClaims, error)
}

// ProfileLoader resolves the tenant profile named by a verified token.
type ProfileLoader interface {
	LoadProfile(ctx context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error)
}

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireAuth validates the Authorization header, loads the caller's tenant profile and stores it
// on the context. Requests to publicPaths pass through untouched.
func RequireAuth(verifier IdentityVerifier, loader ProfileLoader, publicPaths []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicPath(c.Request.URL.Path, publicPaths) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			if errors.Is(err, security.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid access token"))
			return
		}

		profile, err := loader.LoadProfile(c.Request.Context(), claims.TenantID, claims.ProfileID)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrProfileNotFound),
				errors.Is(err, usecase.ErrInvalidTenant),
				errors.Is(err, usecase.ErrTenantNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "unknown tenant profile"))
			default:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		SetProfile(c, *profile)
		c.Next()
	}
}

// isPublicPath matches exact entries, and entries ending in "/*" as prefixes.
func isPublicPath(path string, publicPaths []string) bool {
	for _, public := range publicPaths {
		if prefix, ok := strings.CutSuffix(public, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == public {
			return true
		}
	}
	return false
}
