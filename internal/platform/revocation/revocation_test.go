package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewInMemory()
	l.now = func() time.Time { return now }

	require.NoError(t, l.RevokeToken(ctx, "jti-1", time.Hour))
	require.NoError(t, l.RevokeToken(ctx, "", time.Hour))

	revoked, err := l.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = l.IsTokenRevoked(ctx, "jti-2")
	assert.False(t, revoked)

	now = now.Add(2 * time.Hour)
	revoked, _ = l.IsTokenRevoked(ctx, "jti-1")
	assert.False(t, revoked, "entries lapse with their ttl")
}
