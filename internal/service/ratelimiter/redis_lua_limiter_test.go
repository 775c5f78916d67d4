package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLuaLimiter(t *testing.T, fallback BucketConfig) (*RedisLuaLimiter, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLuaLimiter(rdb, fallback, nil)

	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}

	return limiter, mr, cleanup
}

func TestAllow_NilLimiter_FailOpen(t *testing.T) {
	ctx := context.Background()
	var limiter *RedisLuaLimiter

	allowed, retryAfter, err := limiter.Allow(ctx, "any", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true for nil limiter")
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retryAfter, got %v", retryAfter)
	}
}

func TestNewRedisLuaLimiter_NilClient(t *testing.T) {
	if l := NewRedisLuaLimiter(nil, BucketConfig{Capacity: 1, RefillRate: 1}, nil); l != nil {
		t.Fatalf("expected nil limiter without a redis client")
	}
}

func TestAllow_NoBucketConfig_FailOpen(t *testing.T) {
	ctx := context.Background()
	limiter, _, cleanup := newTestRedisLuaLimiter(t, BucketConfig{})
	defer cleanup()

	allowed, retryAfter, err := limiter.Allow(ctx, "unknown-bucket", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed to be true when no bucket config is present")
	}
	if retryAfter != 0 {
		t.Fatalf("expected zero retryAfter, got %v", retryAfter)
	}
}

func TestAllow_FallbackBucket_RespectsCapacityAndRetryAfter(t *testing.T) {
	ctx := context.Background()
	limiter, mr, cleanup := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 3, RefillRate: 0.5})
	defer cleanup()

	key := "a1b2c3d4e5f6"
	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, key, 1)
		if err != nil {
			t.Fatalf("unexpected error on allowed call %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("expected allowed=true on call %d", i)
		}
		if retryAfter != 0 {
			t.Fatalf("expected retryAfter=0 on allowed call %d, got %v", i, retryAfter)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, key, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter to deny once capacity exhausted")
	}
	if retryAfter <= 0 || retryAfter > 2*time.Second+100*time.Millisecond {
		t.Fatalf("expected retryAfter around 2s, got %v", retryAfter)
	}

	if !mr.Exists("gateway:rate:" + key) {
		t.Fatalf("expected bucket key in redis")
	}
	if ttl := mr.TTL("gateway:rate:" + key); ttl <= 0 {
		t.Fatalf("expected bucket ttl to be set, got %v", ttl)
	}
}

func TestAllow_ExplicitBucketOverridesFallback(t *testing.T) {
	ctx := context.Background()
	limiter, _, cleanup := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 1, RefillRate: 0.000001})
	defer cleanup()

	limiter.SetBucketConfig("roomy", BucketConfig{Capacity: 5, RefillRate: 1})
	for i := 0; i < 5; i++ {
		if allowed, _, err := limiter.Allow(ctx, "roomy", 1); err != nil || !allowed {
			t.Fatalf("call %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	if allowed, _, _ := limiter.Allow(ctx, "tight", 1); !allowed {
		t.Fatalf("first call on fallback bucket must pass")
	}
	if allowed, _, _ := limiter.Allow(ctx, "tight", 1); allowed {
		t.Fatalf("second call on fallback bucket must be denied")
	}
}

func TestAllow_RedisDown_FailOpen(t *testing.T) {
	ctx := context.Background()
	limiter, mr, cleanup := newTestRedisLuaLimiter(t, BucketConfig{Capacity: 1, RefillRate: 1})
	defer cleanup()
	mr.Close()

	allowed, _, err := limiter.Allow(ctx, "k", 1)
	if err == nil {
		t.Fatalf("expected an error when redis is unreachable")
	}
	if !allowed {
		t.Fatalf("expected fail-open when redis is unreachable")
	}
}
