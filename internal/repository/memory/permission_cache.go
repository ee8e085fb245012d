package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

const defaultMaxEntries = 10000

type cachedEntry struct {
	payload   []byte
	expiresAt time.Time
}

// PermissionCache is a process-local LRU of resolved permission maps for single-instance
// deployments. Entries are stored serialised so callers never share mutable maps.
type PermissionCache struct {
	cache *lru.LRU[string, cachedEntry]
	now   func() time.Time
}

// NewPermissionCache builds a cache bounded to maxEntries. Expiry is tracked per entry because
// tenants may carry their own TTL; the LRU only enforces the size bound.
func NewPermissionCache(maxEntries int) *PermissionCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &PermissionCache{
		cache: lru.NewLRU[string, cachedEntry](maxEntries, nil, 0),
		now:   time.Now,
	}
}

// WithClock overrides the time source used for expiry.
func (c *PermissionCache) WithClock(clock func() time.Time) *PermissionCache {
	if clock != nil {
		c.now = clock
	}
	return c
}

var _ port.PermissionCache = (*PermissionCache)(nil)

func (c *PermissionCache) Get(_ context.Context, tenantID, profileID string) (*domain.EffectivePermissions, error) {
	key, err := cacheKey(tenantID, profileID)
	if err != nil {
		return nil, err
	}

	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !c.now().Before(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, repository.ErrNotFound
	}

	var cached domain.EffectivePermissions
	if err := json.Unmarshal(entry.payload, &cached); err != nil {
		return nil, fmt.Errorf("decode cached permissions: %w", err)
	}
	if cached.Permissions == nil {
		cached.Permissions = make(domain.PermissionMap)
	}
	return &cached, nil
}

func (c *PermissionCache) Set(_ context.Context, permissions domain.EffectivePermissions, ttl time.Duration) error {
	key, err := cacheKey(permissions.TenantID, permissions.UserProfileID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	permissions.Metadata.FromCache = false
	payload, err := json.Marshal(permissions)
	if err != nil {
		return fmt.Errorf("encode permissions: %w", err)
	}

	c.cache.Add(key, cachedEntry{payload: payload, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *PermissionCache) Invalidate(_ context.Context, tenantID, profileID string) error {
	key, err := cacheKey(tenantID, profileID)
	if err != nil {
		return err
	}
	c.cache.Remove(key)
	return nil
}

func (c *PermissionCache) InvalidateTenant(_ context.Context, tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}

	prefix := tenantID + "/"
	for _, key := range c.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.cache.Remove(key)
		}
	}
	return nil
}

// Len reports the number of stored entries, including ones that expired but were not read yet.
func (c *PermissionCache) Len() int {
	return c.cache.Len()
}

func cacheKey(tenantID, profileID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	profileID = strings.TrimSpace(profileID)
	if tenantID == "" || profileID == "" {
		return "", fmt.Errorf("tenant id and profile id are required")
	}
	return tenantID + "/" + profileID, nil
}
