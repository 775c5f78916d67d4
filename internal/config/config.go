// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai"
)

// Retry and gate defaults, owned by the ai package.
const (
	DefaultConfidenceThreshold = ai.DefaultConfidenceThreshold
	DefaultQuotaRetryDelay     = ai.DefaultQuotaRetryDelay
	DefaultPerPairRetryCap     = ai.DefaultPerPairRetryCap
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Credentials: GEMINI_API_KEYS is an ordered list; GEMINI_API_KEY and
	// GEMINI_API_KEY_2 are appended after it. Order is trial priority.
	GeminiAPIKeys  []string `env:"GEMINI_API_KEYS" envSeparator:","`
	GeminiAPIKey   string   `env:"GEMINI_API_KEY"`
	GeminiAPIKey2  string   `env:"GEMINI_API_KEY_2"`
	GeminiBaseURL  string   `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	MaxResponseKiB int64    `env:"GEMINI_MAX_RESPONSE_KIB" envDefault:"2048"`

	// Model chains per task, most preferred first.
	VerifyModels   []string `env:"VERIFY_MODELS" envSeparator:"," envDefault:"gemini-flash-latest,gemini-1.5-flash"`
	PricingModels  []string `env:"PRICING_MODELS" envSeparator:"," envDefault:"gemini-flash-latest,gemini-1.5-flash"`
	WasteModels    []string `env:"WASTE_MODELS" envSeparator:"," envDefault:"gemini-flash-latest,gemini-1.5-flash"`
	ModelChainFile string   `env:"MODEL_CHAIN_FILE"`

	// Per-attempt deadlines and the whole-call budget.
	VerifyTimeout  time.Duration `env:"VERIFY_TIMEOUT" envDefault:"30s"`
	PricingTimeout time.Duration `env:"PRICING_TIMEOUT" envDefault:"30s"`
	WasteTimeout   time.Duration `env:"WASTE_TIMEOUT" envDefault:"20s"`
	CallTimeout    time.Duration `env:"CALL_TIMEOUT" envDefault:"2m"`

	// Gate and retry tuning
	ConfidenceThreshold float64       `env:"VERIFY_CONFIDENCE_THRESHOLD" envDefault:"0.95"`
	QuotaRetryDelay     time.Duration `env:"QUOTA_RETRY_DELAY" envDefault:"2s"`
	PerPairRetryCap     int           `env:"PER_PAIR_RETRY_CAP" envDefault:"2"`
	PricingTemperature  float64       `env:"PRICING_TEMPERATURE" envDefault:"0.7"`
	MaxPromptTokens     int           `env:"MAX_PROMPT_TOKENS" envDefault:"0"`
	MaxImageMB          int64         `env:"MAX_IMAGE_MB" envDefault:"8"`

	// Optional outbound throttle shared across instances.
	RedisURL                string `env:"REDIS_URL"`
	ProviderRateLimitPerMin int    `env:"PROVIDER_RATE_LIMIT_PER_MIN" envDefault:"0"`
	// ProviderRateLimitsPerKey overrides the per-minute budget by position in
	// the de-duplicated pool, e.g. "60,15" for a paid key then a free one.
	// 0 keeps the default.
	ProviderRateLimitsPerKey []int `env:"PROVIDER_RATE_LIMIT_PER_MIN_BY_KEY" envSeparator:","`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"harvest-gateway"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"150s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// Credentials returns the configured keys in trial order. Duplicates and
// blanks are left for the credential pool to drop.
func (c Config) Credentials() []string {
	out := make([]string, 0, len(c.GeminiAPIKeys)+2)
	out = append(out, c.GeminiAPIKeys...)
	if c.GeminiAPIKey != "" {
		out = append(out, c.GeminiAPIKey)
	}
	if c.GeminiAPIKey2 != "" {
		out = append(out, c.GeminiAPIKey2)
	}
	return out
}

// RedisEnabled reports whether the outbound throttle should be wired.
func (c Config) RedisEnabled() bool {
	return c.RedisURL != "" && c.ProviderRateLimitPerMin > 0
}
