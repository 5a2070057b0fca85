package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFallbackLimiter(t *testing.T, config Config) *RateLimiter {
	t.Helper()

	// Empty address keeps Redis disabled; the limiter runs on the in-memory
	// fallback, which is what these tests exercise.
	client, err := NewRedisClient("", "", 0)
	require.NoError(t, err)

	return NewRateLimiter(client, config, nil)
}

func TestAllowIPWithinLimit(t *testing.T) {
	rl := newFallbackLimiter(t, DefaultConfig())

	result, err := rl.AllowIP(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, 60, result.Limit)
}

func TestAllowIPExhaustsBurst(t *testing.T) {
	// Limit 3 with multiplier 1 computes a burst of 3, which the floor
	// lifts to 5, so exactly five requests pass before the bucket empties.
	config := Config{IPLimitPerMin: 3, BurstMultiplier: 1}
	rl := newFallbackLimiter(t, config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := rl.AllowIP(ctx, "203.0.113.8")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should pass", i)
	}

	result, err := rl.AllowIP(ctx, "203.0.113.8")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter.Seconds(), 0.0)
}

func TestAllowIPIsolatesAddresses(t *testing.T) {
	config := Config{IPLimitPerMin: 3, BurstMultiplier: 1}
	rl := newFallbackLimiter(t, config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := rl.AllowIP(ctx, "203.0.113.9")
		require.NoError(t, err)
	}

	// A different address still has a full bucket
	result, err := rl.AllowIP(ctx, "203.0.113.10")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestGetStatsWithoutRedis(t *testing.T) {
	rl := newFallbackLimiter(t, DefaultConfig())

	_, err := rl.AllowIP(context.Background(), "203.0.113.11")
	require.NoError(t, err)

	stats := rl.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, 1, stats["fallback_limiters"])
}
