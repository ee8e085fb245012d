package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
)

var (
	// ErrInvalidFeature indicates a feature definition is incomplete or duplicated.
	ErrInvalidFeature = errors.New("invalid feature definition")

	placeholderPattern = regexp.MustCompile(`\{[^/{}]+\}`)
)

type endpointRoute struct {
	method  string
	raw     string
	pattern *regexp.Regexp
	feature int
}

// FeatureRegistry maps permission codes to features, API endpoints and UI components.
// It is immutable after construction and safe for concurrent use.
type FeatureRegistry struct {
	features     []domain.Feature
	byPermission map[string][]int
	byResource   map[string][]int
	endpoints    []endpointRoute
}

// NewFeatureRegistry validates features and compiles their endpoint patterns.
func NewFeatureRegistry(features []domain.Feature) (*FeatureRegistry, error) {
	registry := &FeatureRegistry{
		features:     make([]domain.Feature, 0, len(features)),
		byPermission: make(map[string][]int),
		byResource:   make(map[string][]int),
	}

	seen := make(map[string]struct{}, len(features))
	for _, feature := range features {
		code := strings.TrimSpace(feature.Code)
		if code == "" {
			return nil, fmt.Errorf("%w: feature code is required", ErrInvalidFeature)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: duplicate feature %q", ErrInvalidFeature, code)
		}
		seen[code] = struct{}{}
		if len(feature.RequiredPermissions) == 0 {
			return nil, fmt.Errorf("%w: feature %q requires at least one permission", ErrInvalidFeature, code)
		}

		feature.Code = code
		idx := len(registry.features)
		registry.features = append(registry.features, feature)

		for _, permission := range feature.RequiredPermissions {
			registry.byPermission[permission] = append(registry.byPermission[permission], idx)
		}
		if feature.ResourceType != "" {
			registry.byResource[feature.ResourceType] = append(registry.byResource[feature.ResourceType], idx)
		}

		for _, endpoint := range feature.APIEndpoints {
			route, err := compileEndpoint(endpoint)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %q: %v", ErrInvalidFeature, code, err)
			}
			route.feature = idx
			registry.endpoints = append(registry.endpoints, route)
		}
	}

	return registry, nil
}

// Features returns a copy of every registered feature.
func (r *FeatureRegistry) Features() []domain.Feature {
	out := make([]domain.Feature, len(r.features))
	copy(out, r.features)
	return out
}

// GetFeaturesForPermission returns the features that list code among their required permissions.
func (r *FeatureRegistry) GetFeaturesForPermission(code string) []domain.Feature {
	return r.collect(r.byPermission[code])
}

// UserHasResourceAccess reports whether permissions grant any permission required by any feature
// of resourceType that supports one of actions. An empty action list matches every feature of
// the resource type.
func (r *FeatureRegistry) UserHasResourceAccess(permissions domain.PermissionMap, resourceType string, actions ...string) bool {
	for _, idx := range r.byResource[resourceType] {
		feature := r.features[idx]
		if len(actions) > 0 && !intersects(feature.Actions, actions) {
			continue
		}
		if permissions.HasAny(feature.RequiredPermissions...) {
			return true
		}
	}
	return false
}

// GetAccessibleFeatures returns the features for which permissions grant any required permission.
func (r *FeatureRegistry) GetAccessibleFeatures(permissions domain.PermissionMap) []domain.Feature {
	accessible := make([]domain.Feature, 0)
	for _, feature := range r.features {
		if permissions.HasAny(feature.RequiredPermissions...) {
			accessible = append(accessible, feature)
		}
	}
	return accessible
}

// RequiredPermissionsForEndpoint returns the union of permissions required by the features whose
// endpoint patterns match method and path. The boolean is false when no feature is mapped.
func (r *FeatureRegistry) RequiredPermissionsForEndpoint(method, path string) ([]string, bool) {
	method = strings.ToUpper(strings.TrimSpace(method))

	set := make(map[string]struct{})
	matched := false
	for _, route := range r.endpoints {
		if route.method != "" && route.method != method {
			continue
		}
		if !route.pattern.MatchString(path) {
			continue
		}
		matched = true
		for _, permission := range r.features[route.feature].RequiredPermissions {
			set[permission] = struct{}{}
		}
	}
	if !matched {
		return nil, false
	}

	required := make([]string, 0, len(set))
	for permission := range set {
		required = append(required, permission)
	}
	sort.Strings(required)
	return required, true
}

func (r *FeatureRegistry) collect(indexes []int) []domain.Feature {
	out := make([]domain.Feature, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, r.features[idx])
	}
	return out
}

// compileEndpoint turns "GET /api/v1/sites/{id}" into an anchored regular expression. The method
// prefix is optional.
func compileEndpoint(endpoint string) (endpointRoute, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return endpointRoute{}, fmt.Errorf("empty endpoint pattern")
	}

	var method string
	path := endpoint
	if fields := strings.Fields(endpoint); len(fields) == 2 {
		method = strings.ToUpper(fields[0])
		path = fields[1]
		if !isHTTPMethod(method) {
			return endpointRoute{}, fmt.Errorf("unknown method in %q", endpoint)
		}
	} else if len(fields) > 2 {
		return endpointRoute{}, fmt.Errorf("malformed endpoint pattern %q", endpoint)
	}
	if !strings.HasPrefix(path, "/") {
		return endpointRoute{}, fmt.Errorf("endpoint %q must start with /", endpoint)
	}

	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range placeholderPattern.FindAllStringIndex(path, -1) {
		b.WriteString(regexp.QuoteMeta(path[last:loc[0]]))
		b.WriteString("[^/]+")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(strings.TrimSuffix(path[last:], "/")))
	b.WriteString("/?$")

	pattern, err := regexp.Compile(b.String())
	if err != nil {
		return endpointRoute{}, fmt.Errorf("compile %q: %w", endpoint, err)
	}

	return endpointRoute{method: method, raw: endpoint, pattern: pattern}, nil
}

func isHTTPMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if strings.EqualFold(x, y) {
				return true
			}
		}
	}
	return false
}
