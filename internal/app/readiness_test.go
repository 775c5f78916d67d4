package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/harvest-gateway/internal/app"
)

type proberFunc func(ctx context.Context) error

func (f proberFunc) Probe(ctx context.Context) error { return f(ctx) }

func TestBuildReadinessChecks(t *testing.T) {
	t.Parallel()

	t.Run("nothing configured", func(t *testing.T) {
		t.Parallel()
		redisCheck, providerCheck := app.BuildReadinessChecks(nil, nil)
		assert.Nil(t, redisCheck)
		assert.Nil(t, providerCheck)
	})

	t.Run("redis up then down", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { _ = rdb.Close() })

		redisCheck, _ := app.BuildReadinessChecks(rdb, nil)
		require.NotNil(t, redisCheck)
		require.NoError(t, redisCheck(context.Background()))

		mr.Close()
		assert.Error(t, redisCheck(context.Background()))
	})

	t.Run("provider probe is passed through", func(t *testing.T) {
		t.Parallel()
		want := errors.New("provider unreachable")
		_, providerCheck := app.BuildReadinessChecks(nil, proberFunc(func(context.Context) error { return want }))
		require.NotNil(t, providerCheck)
		assert.ErrorIs(t, providerCheck(context.Background()), want)
	})
}
