package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/harvest-gateway/internal/config"
	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	"github.com/fairyhunter13/harvest-gateway/internal/service/models"
	"github.com/fairyhunter13/harvest-gateway/internal/service/ratelimiter"
	"github.com/fairyhunter13/harvest-gateway/internal/usecase"
)

// catalogRefresh bounds how often readiness re-lists provider models.
const catalogRefresh = 10 * time.Minute

// Components is everything the server wires around the gateway.
type Components struct {
	Gateway *usecase.GatewayService
	Chain   *models.Chain
	Catalog *models.Catalog
}

// BuildGateway wires the facade from configuration. rdb may be nil, in which
// case no outbound throttle is installed.
func BuildGateway(cfg config.Config, rdb *redis.Client, extra ...usecase.Option) (*Components, error) {
	pool, err := ai.NewCredentialPool(cfg.Credentials())
	if err != nil {
		return nil, fmt.Errorf("op=app.BuildGateway: %w", err)
	}
	byTask, err := cfg.ModelChains()
	if err != nil {
		return nil, fmt.Errorf("op=app.BuildGateway: %w", err)
	}
	chain, err := models.NewChain(byTask)
	if err != nil {
		return nil, fmt.Errorf("op=app.BuildGateway: %w", err)
	}

	dispatcher := gemini.New(cfg.GeminiBaseURL, gemini.WithMaxResponseBytes(cfg.MaxResponseKiB<<10))

	rc := cfg.GetRetryConfig()
	opts := []usecase.Option{
		usecase.WithRetryPolicy(ai.RetryPolicy{QuotaDelay: rc.QuotaDelay, PerPairCap: rc.PerPairCap}),
		usecase.WithConfidenceThreshold(rc.ConfidenceThreshold),
		usecase.WithCallTimeout(rc.CallTimeout),
		usecase.WithTaskTimeout(domain.TaskVerifyComponent, cfg.VerifyTimeout),
		usecase.WithTaskTimeout(domain.TaskEstimatePricing, cfg.PricingTimeout),
		usecase.WithTaskTimeout(domain.TaskEstimateWaste, cfg.WasteTimeout),
		usecase.WithPricingTemperature(cfg.PricingTemperature),
	}
	if cfg.MaxPromptTokens > 0 {
		opts = append(opts, usecase.WithPromptGuard(tokencount.DefaultCounter, cfg.MaxPromptTokens))
	}
	lim := newOutboundLimiter(cfg, rdb, pool)
	if lim != nil {
		opts = append(opts, usecase.WithLimiter(lim))
	}
	opts = append(opts, extra...)

	svc, err := usecase.NewGatewayService(pool, chain, dispatcher, opts...)
	if err != nil {
		return nil, fmt.Errorf("op=app.BuildGateway: %w", err)
	}
	slog.Info("gateway configured",
		slog.Int("credentials", pool.Len()),
		slog.Any("models", chain.All()),
		slog.Int("per_pair_cap", rc.PerPairCap),
		slog.Duration("quota_delay", rc.QuotaDelay),
		slog.Bool("outbound_throttle", lim != nil))

	return &Components{
		Gateway: svc,
		Chain:   chain,
		Catalog: models.NewCatalog(cfg.GeminiBaseURL, pool.First(), catalogRefresh),
	}, nil
}

// newOutboundLimiter returns nil unless Redis is configured and at least one
// credential has a positive per-minute budget.
func newOutboundLimiter(cfg config.Config, rdb *redis.Client, pool *ai.CredentialPool) *ratelimiter.RedisLuaLimiter {
	if rdb == nil {
		return nil
	}
	enabled := cfg.ProviderRateLimitPerMin > 0
	for _, n := range cfg.ProviderRateLimitsPerKey {
		enabled = enabled || n > 0
	}
	if !enabled {
		return nil
	}
	lim := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(cfg.ProviderRateLimitPerMin), nil)
	for i, perMin := range cfg.ProviderRateLimitsPerKey {
		if perMin <= 0 || i >= pool.Len() {
			continue
		}
		cred, _ := pool.Next(i - 1)
		lim.SetBucketConfig(cred.Fingerprint(), ratelimiter.NewBucketConfigFromPerMinute(perMin))
	}
	return lim
}

// WarnMissingModels logs chain entries the provider does not list. It never
// fails startup: the chain is static and an unknown model just fails over.
func WarnMissingModels(ctx context.Context, catalog *models.Catalog, chain *models.Chain) {
	missing, err := catalog.Missing(ctx, chain.All())
	if err != nil {
		slog.Warn("model catalog unavailable", slog.Any("error", err))
		return
	}
	if len(missing) > 0 {
		slog.Warn("configured models not offered by provider", slog.Any("models", missing))
	}
}
