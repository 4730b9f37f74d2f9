package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dash/lumina/internal/shared/config"
)

func testGovernor(initiation, callback, refresh int) *Governor {
	return NewGovernor(NewMemoryCounterStore(), config.RateLimitConfig{
		Initiation: config.RateLimitBucketConfig{Limit: initiation, WindowSeconds: 60},
		Callback:   config.RateLimitBucketConfig{Limit: callback, WindowSeconds: 60},
		Refresh:    config.RateLimitBucketConfig{Limit: refresh, WindowSeconds: 60},
	})
}

func TestGovernor_AllowsUnderLimit(t *testing.T) {
	g := testGovernor(5, 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := g.Admit(ctx, BucketInitiation, "user-1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d should be allowed", i+1)
	}
}

func TestGovernor_DeniesOverLimit(t *testing.T) {
	g := testGovernor(3, 5, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := g.Admit(ctx, BucketInitiation, "user-1")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	decision, err := g.Admit(ctx, BucketInitiation, "user-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, time.Minute)
}

func TestGovernor_BucketsIndependent(t *testing.T) {
	g := testGovernor(1, 5, 5)
	ctx := context.Background()

	decision, err := g.Admit(ctx, BucketInitiation, "user-1")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = g.Admit(ctx, BucketInitiation, "user-1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "initiation bucket exhausted")

	decision, err = g.Admit(ctx, BucketCallback, "user-1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "callback bucket untouched")
}

func TestGovernor_KeysIndependent(t *testing.T) {
	g := testGovernor(1, 5, 5)
	ctx := context.Background()

	decision, err := g.Admit(ctx, BucketInitiation, "user-1")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = g.Admit(ctx, BucketInitiation, "user-2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "another subject has its own counter")
}

func TestGovernor_ZeroLimitIsUnlimited(t *testing.T) {
	g := testGovernor(0, 5, 5)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		decision, err := g.Admit(ctx, BucketInitiation, "user-1")
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}
}

func TestGovernor_ZeroWindowIsUnlimited(t *testing.T) {
	g := NewGovernor(NewMemoryCounterStore(), config.RateLimitConfig{
		Initiation: config.RateLimitBucketConfig{Limit: 5, WindowSeconds: 0},
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		decision, err := g.Admit(ctx, BucketInitiation, "user-1")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "a windowless bucket cannot count, so it cannot deny")
	}
}

func TestMemoryCounterStore_WindowExpiry(t *testing.T) {
	store := NewMemoryCounterStore()
	ctx := context.Background()

	count, err := store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	time.Sleep(15 * time.Millisecond)

	count, err = store.Incr(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "counter resets after expiry")
}
