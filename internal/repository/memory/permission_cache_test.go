package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reportify/teleopsold-sub002/internal/core/domain"
	"github.com/Reportify/teleopsold-sub002/internal/repository"
)

func effective(tenantID, profileID string) domain.EffectivePermissions {
	return domain.EffectivePermissions{
		TenantID:      tenantID,
		UserProfileID: profileID,
		Permissions: domain.PermissionMap{
			"task.read": {Code: "task.read", Level: domain.PermissionGranted, Source: domain.SourceGroup},
		},
		Metadata: domain.ResolutionMetadata{GroupCount: 1, FromCache: true},
	}
}

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func TestPermissionCache_RoundTrip(t *testing.T) {
	cache := NewPermissionCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, effective("tenant-a", "p-1"), time.Minute))

	got, err := cache.Get(ctx, "tenant-a", "p-1")
	require.NoError(t, err)
	assert.True(t, got.Permissions.Has("task.read"))
	assert.False(t, got.Metadata.FromCache)
	assert.Equal(t, 1, got.Metadata.GroupCount)

	got.Permissions["task.read"] = domain.PermissionEntry{Code: "task.read", Level: domain.PermissionDenied}
	again, err := cache.Get(ctx, "tenant-a", "p-1")
	require.NoError(t, err)
	assert.True(t, again.Permissions.Has("task.read"), "callers must not mutate cached state")
}

func TestPermissionCache_Miss(t *testing.T) {
	cache := NewPermissionCache(10)

	_, err := cache.Get(context.Background(), "tenant-a", "p-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPermissionCache_PerEntryExpiry(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	cache := NewPermissionCache(10).WithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, effective("tenant-a", "p-1"), time.Minute))
	require.NoError(t, cache.Set(ctx, effective("tenant-b", "p-1"), time.Hour))

	clock.now = clock.now.Add(2 * time.Minute)

	_, err := cache.Get(ctx, "tenant-a", "p-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = cache.Get(ctx, "tenant-b", "p-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}

func TestPermissionCache_SizeBound(t *testing.T) {
	cache := NewPermissionCache(2)
	ctx := context.Background()

	for _, profile := range []string{"p-1", "p-2", "p-3"} {
		require.NoError(t, cache.Set(ctx, effective("tenant-a", profile), time.Minute))
	}

	assert.Equal(t, 2, cache.Len())
	_, err := cache.Get(ctx, "tenant-a", "p-1")
	assert.ErrorIs(t, err, repository.ErrNotFound, "least recently used entry should be evicted")
}

func TestPermissionCache_InvalidateTenant(t *testing.T) {
	cache := NewPermissionCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, effective("tenant-a", "p-1"), time.Minute))
	require.NoError(t, cache.Set(ctx, effective("tenant-a", "p-2"), time.Minute))
	require.NoError(t, cache.Set(ctx, effective("tenant-ab", "p-1"), time.Minute))

	require.NoError(t, cache.InvalidateTenant(ctx, "tenant-a"))

	_, err := cache.Get(ctx, "tenant-a", "p-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = cache.Get(ctx, "tenant-ab", "p-1")
	assert.NoError(t, err, "tenant prefix must not match a longer tenant id")

	require.NoError(t, cache.Invalidate(ctx, "tenant-ab", "p-1"))
	assert.Equal(t, 0, cache.Len())
}

func TestPermissionCache_Validation(t *testing.T) {
	cache := NewPermissionCache(0)
	ctx := context.Background()

	assert.Error(t, cache.Set(ctx, effective("tenant-a", ""), time.Minute))
	assert.Error(t, cache.Set(ctx, effective("tenant-a", "p-1"), -time.Second))
	assert.Error(t, cache.InvalidateTenant(ctx, ""))
	_, err := cache.Get(ctx, "", "p-1")
	assert.Error(t, err)
}
