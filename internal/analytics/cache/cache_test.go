package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technovit/internal/analytics/models"
)

func TestInMemoryStats_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewInMemoryStats(30 * time.Second)
	c.now = func() time.Time { return now }

	_, hit, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "all", &models.Stats{TotalRevenue: 1000, PaidCount: 2}))
	got, hit, err := c.Get(ctx, "all")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 1000.0, got.TotalRevenue)

	now = now.Add(31 * time.Second)
	_, hit, err = c.Get(ctx, "all")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInMemoryStats_Invalidate(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryStats(time.Minute)
	require.NoError(t, c.Set(ctx, "all", &models.Stats{PaidCount: 1}))
	require.NoError(t, c.Set(ctx, "events:a", &models.Stats{PaidCount: 2}))

	require.NoError(t, c.Invalidate(ctx))

	for _, key := range []string{"all", "events:a"} {
		_, hit, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, hit, key)
	}
}
