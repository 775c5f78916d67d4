package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai"
	"github.com/fairyhunter13/harvest-gateway/internal/config"
)

func TestNewOutboundLimiter(t *testing.T) {
	t.Parallel()
	pool, err := ai.NewCredentialPool([]string{"paid-key", "free-key"})
	require.NoError(t, err)

	t.Run("disabled without redis or budgets", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		assert.Nil(t, newOutboundLimiter(config.Config{ProviderRateLimitPerMin: 60}, nil, pool))
		assert.Nil(t, newOutboundLimiter(config.Config{ProviderRateLimitsPerKey: []int{0, 0}}, rdb, pool))
	})

	t.Run("per-key budget overrides the default", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		cfg := config.Config{ProviderRateLimitPerMin: 60, ProviderRateLimitsPerKey: []int{0, 1, 5}}
		lim := newOutboundLimiter(cfg, rdb, pool)
		require.NotNil(t, lim)

		paid, _ := pool.Next(-1)
		free, _ := pool.Next(paid.Index())
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			ok, _, err := lim.Allow(ctx, paid.Fingerprint(), 1)
			require.NoError(t, err)
			assert.True(t, ok, "paid key keeps the default budget")
		}

		ok, _, err := lim.Allow(ctx, free.Fingerprint(), 1)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, retryAfter, err := lim.Allow(ctx, free.Fingerprint(), 1)
		require.NoError(t, err)
		assert.False(t, ok, "free key has a one-call bucket")
		assert.Positive(t, retryAfter)
	})

	t.Run("per-key budget alone enables the limiter", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })

		lim := newOutboundLimiter(config.Config{ProviderRateLimitsPerKey: []int{1}}, rdb, pool)
		require.NotNil(t, lim)

		free, _ := pool.Next(0)
		ok, _, err := lim.Allow(context.Background(), free.Fingerprint(), 1)
		require.NoError(t, err)
		assert.True(t, ok, "credentials without a budget are not throttled")
	})
}
