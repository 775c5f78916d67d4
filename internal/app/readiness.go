package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Prober is anything that can confirm the provider is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// BuildReadinessChecks returns the Redis and provider checks. A check is nil
// when its dependency is not configured, and /readyz then skips it.
func BuildReadinessChecks(rdb redis.UniversalClient, provider Prober) (
	redisCheck func(ctx context.Context) error,
	providerCheck func(ctx context.Context) error,
) {
	if rdb != nil {
		redisCheck = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		}
	}
	if provider != nil {
		providerCheck = provider.Probe
	}
	return redisCheck, providerCheck
}
