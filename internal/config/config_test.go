package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes vars for the duration of the test; t.Setenv restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "x")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestConfig_Load_DefaultValues(t *testing.T) {
	unsetEnv(t, "APP_ENV", "PORT", "GEMINI_API_KEYS", "GEMINI_API_KEY", "GEMINI_API_KEY_2",
		"GEMINI_BASE_URL", "VERIFY_MODELS", "PRICING_MODELS", "WASTE_MODELS", "VERIFY_TIMEOUT",
		"VERIFY_CONFIDENCE_THRESHOLD", "QUOTA_RETRY_DELAY", "PER_PAIR_RETRY_CAP", "REDIS_URL",
		"PROVIDER_RATE_LIMIT_PER_MIN", "CALL_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.GeminiBaseURL)
	assert.Equal(t, []string{"gemini-flash-latest", "gemini-1.5-flash"}, cfg.VerifyModels)
	assert.Equal(t, []string{"gemini-flash-latest", "gemini-1.5-flash"}, cfg.PricingModels)
	assert.Equal(t, 30*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, 2*time.Minute, cfg.CallTimeout)
	assert.Equal(t, DefaultConfidenceThreshold, cfg.ConfidenceThreshold)
	assert.Equal(t, DefaultQuotaRetryDelay, cfg.QuotaRetryDelay)
	assert.Equal(t, DefaultPerPairRetryCap, cfg.PerPairRetryCap)
	assert.Empty(t, cfg.Credentials())
	assert.False(t, cfg.RedisEnabled())
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestConfig_Credentials_Order(t *testing.T) {
	t.Setenv("GEMINI_API_KEYS", "k1,k2")
	t.Setenv("GEMINI_API_KEY", "k3")
	t.Setenv("GEMINI_API_KEY_2", "k1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3", "k1"}, cfg.Credentials())
}

func TestConfig_Load_PerKeyRateLimits(t *testing.T) {
	t.Setenv("PROVIDER_RATE_LIMIT_PER_MIN_BY_KEY", "60,0,15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{60, 0, 15}, cfg.ProviderRateLimitsPerKey)
}

func TestConfig_Load_ErrorOnBadDuration(t *testing.T) {
	t.Setenv("VERIFY_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=config.Load")
}

func TestConfig_RedisEnabled(t *testing.T) {
	assert.False(t, Config{RedisURL: "redis://localhost:6379"}.RedisEnabled())
	assert.False(t, Config{ProviderRateLimitPerMin: 10}.RedisEnabled())
	assert.True(t, Config{RedisURL: "redis://localhost:6379", ProviderRateLimitPerMin: 10}.RedisEnabled())
}
