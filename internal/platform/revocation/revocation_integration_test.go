//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"technovit/pkg/testutil/containers"
)

func TestRedisList(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	require.NoError(t, rc.FlushAll(ctx))

	l := NewRedisList(rc.Client)
	require.NoError(t, l.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := l.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = l.IsTokenRevoked(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, revoked)
}
