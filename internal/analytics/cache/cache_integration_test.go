//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technovit/internal/analytics/models"
	"technovit/pkg/testutil/containers"
)

func TestRedisStats(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	c := NewRedisStats(rc.Client, time.Minute)
	_, hit, err := c.Get(ctx, "scope-a")
	require.NoError(t, err)
	assert.False(t, hit)

	want := &models.Stats{TotalRevenue: 1500, TotalRegistrations: 4, PaidCount: 3, UnpaidCount: 1}
	require.NoError(t, c.Set(ctx, "scope-a", want))

	got, hit, err := c.Get(ctx, "scope-a")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, want, got)

	ttl, err := rc.Client.TTL(ctx, keyPrefix+"scope-a").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Set(ctx, "scope-b", want))
	require.NoError(t, rc.Client.Set(ctx, "unrelated", "keep", 0).Err())
	require.NoError(t, c.Invalidate(ctx))

	for _, key := range []string{"scope-a", "scope-b"} {
		_, hit, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, hit, key)
	}
	kept, err := rc.Client.Get(ctx, "unrelated").Result()
	require.NoError(t, err)
	assert.Equal(t, "keep", kept)
}
