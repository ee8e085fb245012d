package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/core/port"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

const (
	defaultPermissionCachePrefix = "rbac"
	scanBatchSize                = 200
)

// PermissionCache stores resolved permission maps as JSON under prefix:tenant:profile.
type PermissionCache struct {
	client red.UniversalClient
	prefix string
}

// NewPermissionCache constructs the cache helper.
func NewPermissionCache(client red.UniversalClient, keyPrefix string) *PermissionCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultPermissionCachePrefix
	}
	return &PermissionCache{client: client, prefix: prefix}
}

var _ port.PermissionCache = (*PermissionCache)(nil)

// Get returns the cached map or repository.ErrNotFound.
func (c *PermissionCache) Get(ctx context.Context, tenantID, profileID string) (*domain.EffectivePermissions, error) {
	key, err := c.key(tenantID, profileID)
	if err != nil {
		return nil, err
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get permissions: %w", err)
	}

	var cached domain.EffectivePermissions
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode cached permissions: %w", err)
	}
	if cached.Permissions == nil {
		cached.Permissions = make(domain.PermissionMap)
	}
	return &cached, nil
}

// Set stores the map with ttl. The FromCache flag is never persisted.
func (c *PermissionCache) Set(ctx context.Context, permissions domain.EffectivePermissions, ttl time.Duration) error {
	key, err := c.key(permissions.TenantID, permissions.UserProfileID)
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

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set permissions: %w", err)
	}
	return nil
}

// Invalidate removes the cached map of one profile.
func (c *PermissionCache) Invalidate(ctx context.Context, tenantID, profileID string) error {
	key, err := c.key(tenantID, profileID)
	if err != nil {
		return err
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete permissions: %w", err)
	}
	return nil
}

// InvalidateTenant removes every cached map of a tenant using SCAN so large keyspaces are not
// blocked.
func (c *PermissionCache) InvalidateTenant(ctx context.Context, tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}

	pattern := fmt.Sprintf("%s:%s:*", c.prefix, tenantID)
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan permissions: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete tenant permissions: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *PermissionCache) key(tenantID, profileID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	profileID = strings.TrimSpace(profileID)
	if tenantID == "" || profileID == "" {
		return "", fmt.Errorf("tenant id and profile id are required")
	}
	return fmt.Sprintf("%s:%s:%s", c.prefix, tenantID, profileID), nil
}
