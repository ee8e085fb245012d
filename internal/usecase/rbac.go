package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

const (
	PermissionRBACManage = "rbac.manage"
	PermissionRBACAudit  = "rbac.audit"

	defaultPermissionCacheTTL = 5 * time.Minute
	tracerName                = "github.com/Reportify/teleopsold-sub002/internal/usecase"
)

var (
	// ErrPermissionDenied indicates the actor lacks required permissions.
	ErrPermissionDenied = errors.New("insufficient permissions")
	// ErrProfileNotFound is returned when a profile does not exist within the tenant.
	ErrProfileNotFound = errors.New("user profile not found")
	// ErrInvalidTenant indicates a missing or mismatched tenant identifier.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrTenantNotFound is returned when the tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")
)

// RBACService resolves effective permission maps for tenant user profiles.
type RBACService struct {
	profiles     port.UserProfileRepository
	registry     port.PermissionRegistryRepository
	designations port.DesignationRepository
	groups       port.PermissionGroupRepository
	overrides    port.OverrideRepository
	tenants      port.TenantRepository

	cache      port.PermissionCache
	cacheTTL   time.Duration
	tenantTTLs map[string]time.Duration

	metrics port.ResolutionMetrics
	logger  *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewRBACService constructs an RBACService without a cache.
func NewRBACService(
	profiles port.UserProfileRepository,
	registry port.PermissionRegistryRepository,
	designations port.DesignationRepository,
	groups port.PermissionGroupRepository,
	overrides port.OverrideRepository,
) *RBACService {
	return &RBACService{
		profiles:     profiles,
		registry:     registry,
		designations: designations,
		groups:       groups,
		overrides:    overrides,
		cacheTTL:     defaultPermissionCacheTTL,
		logger:       zap.NewNop(),
		tracer:       otel.Tracer(tracerName),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithPermissionCache enables caching of resolved maps with the supplied default TTL.
func (s *RBACService) WithPermissionCache(cache port.PermissionCache, ttl time.Duration) *RBACService {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

// WithTenantCacheTTLs overrides the cache TTL for individual tenants.
func (s *RBACService) WithTenantCacheTTLs(ttls map[string]time.Duration) *RBACService {
	if len(ttls) == 0 {
		return s
	}
	s.tenantTTLs = make(map[string]time.Duration, len(ttls))
	for tenantID, ttl := range ttls {
		if ttl > 0 {
			s.tenantTTLs[tenantID] = ttl
		}
	}
	return s
}

// WithTenantRepository enables tenant and vendor relationship lookups.
func (s *RBACService) WithTenantRepository(tenants port.TenantRepository) *RBACService {
	s.tenants = tenants
	return s
}

// WithMetrics attaches resolution metrics.
func (s *RBACService) WithMetrics(metrics port.ResolutionMetrics) *RBACService {
	s.metrics = metrics
	return s
}

// WithLogger attaches a logger.
func (s *RBACService) WithLogger(logger *zap.Logger) *RBACService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source used for assignment windows.
func (s *RBACService) WithClock(clock func() time.Time) *RBACService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// LoadProfile fetches a profile scoped to tenantID.
func (s *RBACService) LoadProfile(ctx context.Context, tenantID, profileID string) (*domain.TenantUserProfile, error) {
	tenantID = strings.TrimSpace(tenantID)
	profileID = strings.TrimSpace(profileID)
	if tenantID == "" {
		return nil, ErrInvalidTenant
	}
	if profileID == "" {
		return nil, ErrProfileNotFound
	}

	profile, err := s.profiles.GetByID(ctx, tenantID, profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.TenantID != tenantID {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// GetEffectivePermissions returns the resolved permission map of profile. Cached maps are served
// unless forceRefresh is set, in which case the map is recomputed and the cache repopulated.
func (s *RBACService) GetEffectivePermissions(ctx context.Context, profile domain.TenantUserProfile, forceRefresh bool) (*domain.EffectivePermissions, error) {
	if strings.TrimSpace(profile.TenantID) == "" {
		return nil, ErrInvalidTenant
	}

	ctx, span := s.tracer.Start(ctx, "rbac.GetEffectivePermissions", trace.WithAttributes(
		attribute.String("rbac.tenant_id", profile.TenantID),
		attribute.String("rbac.user_profile_id", profile.ID),
		attribute.Bool("rbac.force_refresh", forceRefresh),
	))
	defer span.End()

	if !forceRefresh {
		if cached := s.readCache(ctx, profile); cached != nil {
			span.SetAttributes(attribute.Bool("rbac.cache_hit", true))
			return cached, nil
		}
	}

	result, err := s.resolve(ctx, profile, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve permissions")
		return nil, err
	}

	s.writeCache(ctx, *result)
	return result, nil
}

// GetEffectivePermissionsBatch resolves several profiles through the same path as
// GetEffectivePermissions so batch and individual callers always agree.
func (s *RBACService) GetEffectivePermissionsBatch(ctx context.Context, profiles []domain.TenantUserProfile, forceRefresh bool) (map[string]*domain.EffectivePermissions, error) {
	results := make(map[string]*domain.EffectivePermissions, len(profiles))
	for _, profile := range profiles {
		resolved, err := s.GetEffectivePermissions(ctx, profile, forceRefresh)
		if err != nil {
			return nil, fmt.Errorf("resolve profile %s: %w", profile.ID, err)
		}
		results[profile.ID] = resolved
	}
	return results, nil
}

// GetUserPermissions returns the granted permission codes of profile in lexical order.
func (s *RBACService) GetUserPermissions(ctx context.Context, profile domain.TenantUserProfile) ([]string, error) {
	resolved, err := s.GetEffectivePermissions(ctx, profile, false)
	if err != nil {
		return nil, err
	}
	return resolved.Permissions.GrantedCodes(), nil
}

// HasPermission reports whether profile is granted code.
func (s *RBACService) HasPermission(ctx context.Context, profile domain.TenantUserProfile, code string) (bool, error) {
	return s.HasAnyPermission(ctx, profile, code)
}

// HasAnyPermission reports whether profile is granted at least one of codes.
func (s *RBACService) HasAnyPermission(ctx context.Context, profile domain.TenantUserProfile, codes ...string) (bool, error) {
	resolved, err := s.GetEffectivePermissions(ctx, profile, false)
	if err != nil {
		return false, err
	}
	return resolved.Permissions.HasAny(codes...), nil
}

// Explain recomputes the map of profile and records every candidate considered per code.
// It never reads or writes the cache.
func (s *RBACService) Explain(ctx context.Context, profile domain.TenantUserProfile) (*domain.PermissionExplanation, error) {
	if strings.TrimSpace(profile.TenantID) == "" {
		return nil, ErrInvalidTenant
	}

	ctx, span := s.tracer.Start(ctx, "rbac.Explain")
	defer span.End()

	contributions := make(map[string][]domain.Contribution)
	resolved, err := s.resolve(ctx, profile, contributions)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &domain.PermissionExplanation{
		Effective:     *resolved,
		Contributions: contributions,
	}, nil
}

// VendorClients lists the client tenants a vendor tenant serves. Relationships are informational
// only: vendor staff never inherit permissions from a client tenant.
func (s *RBACService) VendorClients(ctx context.Context, tenantID string) ([]domain.VendorRelationship, error) {
	if s.tenants == nil {
		return nil, fmt.Errorf("tenant repository not configured")
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if tenant.Type != domain.TenantTypeVendor {
		return []domain.VendorRelationship{}, nil
	}

	relationships, err := s.tenants.ListVendorClients(ctx, tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("list vendor clients: %w", err)
	}
	return relationships, nil
}

// Invalidate drops the cached map of one profile.
func (s *RBACService) Invalidate(ctx context.Context, tenantID, profileID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, tenantID, profileID); err != nil {
		s.recordCacheError("invalidate")
		return fmt.Errorf("invalidate permission cache: %w", err)
	}
	return nil
}

// InvalidateTenant drops every cached map of a tenant, used when its registry changes.
func (s *RBACService) InvalidateTenant(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		s.recordCacheError("invalidate_tenant")
		return fmt.Errorf("invalidate tenant permission cache: %w", err)
	}
	return nil
}

func (s *RBACService) readCache(ctx context.Context, profile domain.TenantUserProfile) *domain.EffectivePermissions {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.Get(ctx, profile.TenantID, profile.ID)
	switch {
	case err == nil && cached != nil:
		if cached.TenantID != profile.TenantID || cached.UserProfileID != profile.ID {
			s.logger.Warn("discarding cached permission map for another identity",
				zap.String("tenant_id", profile.TenantID),
				zap.String("user_profile_id", profile.ID),
			)
			s.recordCacheMiss()
			return nil
		}
		if s.metrics != nil {
			s.metrics.IncCacheHit()
		}
		cached.Metadata.FromCache = true
		return cached
	case err == nil || errors.Is(err, repository.ErrNotFound):
		s.recordCacheMiss()
	default:
		s.recordCacheError("get")
		s.logger.Warn("permission cache read failed, recomputing",
			zap.String("tenant_id", profile.TenantID),
			zap.String("user_profile_id", profile.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *RBACService) writeCache(ctx context.Context, resolved domain.EffectivePermissions) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, resolved, s.ttlFor(resolved.TenantID)); err != nil {
		s.recordCacheError("set")
		s.logger.Warn("permission cache write failed",
			zap.String("tenant_id", resolved.TenantID),
			zap.String("user_profile_id", resolved.UserProfileID),
			zap.Error(err),
		)
	}
}

func (s *RBACService) ttlFor(tenantID string) time.Duration {
	if ttl, ok := s.tenantTTLs[tenantID]; ok {
		return ttl
	}
	return s.cacheTTL
}

func (s *RBACService) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.IncCacheMiss()
	}
}

func (s *RBACService) recordCacheError(operation string) {
	if s.metrics != nil {
		s.metrics.IncCacheError(operation)
	}
}
