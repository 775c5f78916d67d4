// Package ratelimiter provides a Redis-backed token bucket shared by gateway instances.
package ratelimiter

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

var _ domain.Limiter = (*RedisLuaLimiter)(nil)

// BucketConfig sizes one token bucket.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// NewBucketConfigFromPerMinute converts a per-minute budget into a bucket.
func NewBucketConfigFromPerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{
		Capacity:   int64(perMinute),
		RefillRate: float64(perMinute) / 60.0,
	}
}

func (c BucketConfig) enabled() bool { return c.Capacity > 0 && c.RefillRate > 0 }

// RedisLuaLimiter throttles outbound provider calls per key (a credential
// fingerprint). It fails open: a Redis problem never blocks a call.
type RedisLuaLimiter struct {
	redis    *redis.Client
	fallback BucketConfig
	buckets  map[string]BucketConfig
	script   *redis.Script
	prefix   string
	mu       sync.RWMutex
}

// NewRedisLuaLimiter creates a limiter. fallback applies to keys without an explicit bucket.
func NewRedisLuaLimiter(rdb *redis.Client, fallback BucketConfig, buckets map[string]BucketConfig) *RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &RedisLuaLimiter{
		redis:    rdb,
		fallback: fallback,
		buckets:  buckets,
		script:   redis.NewScript(luaTokenBucketScript),
		prefix:   "gateway:rate:",
	}
}

// Values are returned as strings: Redis would truncate Lua numbers to integers.
const luaTokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = capacity
local last_refill = now

local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] ~= false and data[1] ~= nil then
  tokens = tonumber(data[1])
end
if data[2] ~= false and data[2] ~= nil then
  last_refill = tonumber(data[2])
end

if last_refill == nil then
  last_refill = now
end

local delta = now - last_refill
if delta < 0 then
  delta = 0
end

tokens = math.min(capacity, tokens + delta * refill_rate)
last_refill = now

local allowed = 0
local retry_after = 0

if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  local shortage = cost - tokens
  if refill_rate > 0 then
    retry_after = shortage / refill_rate
  end
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
if ttl > 0 then
  redis.call("EXPIRE", key, ttl)
end

return { allowed, tostring(tokens), tostring(retry_after) }
`

// Allow takes cost tokens from key's bucket.
func (l *RedisLuaLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil || l.redis == nil {
		return true, 0, nil
	}
	cfg := l.bucketFor(key)
	if !cfg.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}

	nowSec := float64(time.Now().UnixNano()) / 1e9
	// idle buckets expire once they would be full again
	ttl := int64(math.Ceil(float64(cfg.Capacity)/cfg.RefillRate)) + 1

	res, err := l.script.Run(ctx, l.redis, []string{l.prefix + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost, ttl).Result()
	if err != nil {
		slog.Error("redis rate limiter script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) < 3 {
		slog.Error("redis rate limiter unexpected script result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}

	allowed := toInt64(vals[0]) == 1
	retryAfterSec := toFloat64(vals[2])
	if math.IsNaN(retryAfterSec) || retryAfterSec < 0 {
		retryAfterSec = 0
	}
	retryAfter := time.Duration(retryAfterSec * float64(time.Second))

	if !allowed {
		slog.Debug("outbound call throttled",
			slog.String("key", key),
			slog.Float64("tokens", toFloat64(vals[1])),
			slog.Duration("retry_after", retryAfter))
	}
	return allowed, retryAfter, nil
}

func (l *RedisLuaLimiter) bucketFor(key string) BucketConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if cfg, ok := l.buckets[key]; ok {
		return cfg
	}
	return l.fallback
}

// SetBucketConfig updates or creates the bucket for key. Safe for concurrent use.
func (l *RedisLuaLimiter) SetBucketConfig(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buckets == nil {
		l.buckets = map[string]BucketConfig{}
	}
	l.buckets[key] = cfg
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
