package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/infra/config"
	"github.com/Reportify/teleopsold-sub002/internal/transport/http/handlers"
	"github.com/Reportify/teleopsold-sub002/internal/transport/http/middleware"
	"github.com/Reportify/teleopsold-sub002/internal/usecase"
)

// PermissionService resolves profiles and their effective permissions.
type PermissionService interface {
	handlers.PermissionResolver
	middleware.PermissionChecker
}

// FeatureCatalog answers both feature listing and endpoint enforcement lookups.
type FeatureCatalog interface {
	handlers.FeatureLister
	middleware.EndpointPermissions
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Version     string
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Verifier    middleware.IdentityVerifier
	Permissions PermissionService
	Features    FeatureCatalog
	Assignments handlers.PermissionMutator
	Denials     middleware.DenialRecorder
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware. The RBAC API is mounted only when
// the verifier, permission service, feature catalogue and mutation service are all present.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config == nil {
		deps.Config = &config.AppConfig{}
	}
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("permission_cache", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	handlers.RegisterSwagger(r, deps.Version)

	if deps.Verifier == nil || deps.Permissions == nil || deps.Features == nil || deps.Assignments == nil {
		return r
	}

	publicPaths := deps.Config.RBAC.PublicPaths
	enforcer := middleware.NewEnforcer(deps.Permissions, deps.Features).
		WithPublicPaths(publicPaths).
		WithLogger(deps.Logger)
	if deps.Denials != nil {
		enforcer = enforcer.WithDenialRecorder(deps.Denials)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(deps.Verifier, deps.Permissions, publicPaths))
	api.Use(enforcer.EnforceEndpoints())
	{
		rbacHandler := handlers.NewRBACHandler(deps.Permissions, deps.Features, deps.Assignments)
		rbacHandler.RegisterRoutes(api.Group("/rbac"),
			enforcer.RequirePermission(usecase.PermissionRBACAudit),
			enforcer.RequirePermission(usecase.PermissionRBACManage),
		)
	}

	return r
}
