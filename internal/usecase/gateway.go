// Package usecase contains the gateway facade and its call runner.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	obsctx "github.com/fairyhunter13/harvest-gateway/internal/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/service/models"
)

// Per-attempt deadlines used when no override is configured.
const (
	DefaultVerifyTimeout  = 30 * time.Second
	DefaultPricingTimeout = 30 * time.Second
	DefaultWasteTimeout   = 20 * time.Second
)

// GatewayService is the facade every caller goes through. It holds no
// per-call state and is safe for concurrent use.
type GatewayService struct {
	pool       *ai.CredentialPool
	chain      *models.Chain
	dispatcher domain.Dispatcher
	scheduler  *ai.Scheduler
	extractor  *ai.Extractor
	gate       *ai.Gate

	limiter         domain.Limiter
	tokens          domain.TokenCounter
	maxPromptTokens int

	callTimeout        time.Duration
	deadlines          map[domain.TaskKind]time.Duration
	pricingTemperature *float64
	onAttempt          func(domain.AttemptRecord)
}

// Option configures a GatewayService.
type Option func(*GatewayService)

// WithRetryPolicy replaces the default quota delay and per-pair cap.
func WithRetryPolicy(p ai.RetryPolicy) Option {
	return func(s *GatewayService) { s.scheduler = ai.NewScheduler(p) }
}

// WithConfidenceThreshold raises the minimum confidence for a "verified" verdict.
// Values below ai.DefaultConfidenceThreshold keep the default.
func WithConfidenceThreshold(t float64) Option {
	return func(s *GatewayService) { s.gate = ai.NewGate(t) }
}

// WithLimiter throttles outbound attempts per credential.
func WithLimiter(l domain.Limiter) Option {
	return func(s *GatewayService) { s.limiter = l }
}

// WithPromptGuard rejects prompts above maxTokens before any dispatch. Zero disables it.
func WithPromptGuard(c domain.TokenCounter, maxTokens int) Option {
	return func(s *GatewayService) {
		s.tokens = c
		s.maxPromptTokens = maxTokens
	}
}

// WithCallTimeout bounds a whole call, retries and waits included.
func WithCallTimeout(d time.Duration) Option {
	return func(s *GatewayService) { s.callTimeout = d }
}

// WithTaskTimeout overrides the per-attempt deadline of one task.
func WithTaskTimeout(task domain.TaskKind, d time.Duration) Option {
	return func(s *GatewayService) {
		if d > 0 {
			s.deadlines[task] = d
		}
	}
}

// WithPricingTemperature sets the sampling temperature sent for pricing calls.
func WithPricingTemperature(t float64) Option {
	return func(s *GatewayService) { s.pricingTemperature = &t }
}

// WithAttemptHook is called synchronously after every attempt.
func WithAttemptHook(fn func(domain.AttemptRecord)) Option {
	return func(s *GatewayService) { s.onAttempt = fn }
}

// NewGatewayService wires the facade. The pool, chain and dispatcher are required.
func NewGatewayService(pool *ai.CredentialPool, chain *models.Chain, dispatcher domain.Dispatcher, opts ...Option) (*GatewayService, error) {
	if pool == nil || pool.Len() == 0 {
		return nil, domain.Errorf(domain.KindNoCredentials, "credential pool is empty")
	}
	if chain == nil {
		return nil, fmt.Errorf("%w: model chain is required", domain.ErrInvalidArgument)
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher is required", domain.ErrInvalidArgument)
	}
	s := &GatewayService{
		pool:       pool,
		chain:      chain,
		dispatcher: dispatcher,
		scheduler:  ai.NewScheduler(ai.DefaultRetryPolicy()),
		extractor:  ai.NewExtractor(),
		gate:       ai.NewGate(0),
		deadlines: map[domain.TaskKind]time.Duration{
			domain.TaskVerifyComponent: DefaultVerifyTimeout,
			domain.TaskEstimatePricing: DefaultPricingTimeout,
			domain.TaskEstimateWaste:   DefaultWasteTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Credentials reports how many credentials the pool holds.
func (s *GatewayService) Credentials() int { return s.pool.Len() }

// VerifyComponent asks whether the image shows the expected component.
func (s *GatewayService) VerifyComponent(ctx context.Context, image []byte, mimeType, deviceName, expected string) (domain.VerificationResult, error) {
	if len(image) == 0 {
		return domain.VerificationResult{}, domain.Errorf(domain.KindInvalidRequest, "image is empty")
	}
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return domain.VerificationResult{}, domain.Errorf(domain.KindInvalidRequest, "expected component name is required")
	}
	mt, err := resolveImageMIME(image, mimeType)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	req := domain.NewInferenceRequest(
		domain.TaskVerifyComponent,
		verifyPrompt(strings.TrimSpace(deviceName), expected),
		&domain.InlineData{MIMEType: mt, Data: image},
		nil,
		s.deadlines[domain.TaskVerifyComponent],
	)
	res, err := execute(ctx, s, req, s.gate.ValidateVerification)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	observability.ObserveVerification(res.Confidence, res.Downgraded)
	return res, nil
}

// IsVerified is the binary view of a verification outcome: any error counts as not verified.
func IsVerified(res domain.VerificationResult, err error) bool {
	return err == nil && res.Status == domain.StatusVerified
}

// EstimatePricing asks for integer prices for the query's items.
func (s *GatewayService) EstimatePricing(ctx context.Context, q domain.PricingQuery) (domain.PricingResult, error) {
	if strings.TrimSpace(q.Context) == "" {
		return domain.PricingResult{}, domain.Errorf(domain.KindInvalidRequest, "pricing context is required")
	}
	ids := make([]string, 0, len(q.ItemIDs))
	for _, id := range q.ItemIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	q.ItemIDs = ids
	req := domain.NewInferenceRequest(
		domain.TaskEstimatePricing,
		pricingPrompt(q),
		nil,
		s.pricingTemperature,
		s.deadlines[domain.TaskEstimatePricing],
	)
	return execute(ctx, s, req, func(raw json.RawMessage) (domain.PricingResult, error) {
		return s.gate.ValidatePricing(raw, ids)
	})
}

// EstimateWaste never fails: an empty list or any failure yields a zero estimate.
func (s *GatewayService) EstimateWaste(ctx context.Context, components []domain.ComponentRef) domain.WasteEstimate {
	comps := make([]domain.ComponentRef, 0, len(components))
	for _, c := range components {
		if strings.TrimSpace(c.Name) != "" {
			comps = append(comps, c)
		}
	}
	if len(comps) == 0 {
		return domain.WasteEstimate{}
	}
	req := domain.NewInferenceRequest(
		domain.TaskEstimateWaste,
		wastePrompt(comps),
		nil,
		nil,
		s.deadlines[domain.TaskEstimateWaste],
	)
	est, err := execute(ctx, s, req, s.gate.ValidateWaste)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("waste estimate unavailable, reporting zero",
			slog.String("kind", domain.KindOf(err).String()),
			slog.Int("components", len(comps)))
		return domain.WasteEstimate{}
	}
	return est
}

// checkPromptSize enforces the optional prompt-size guard.
func (s *GatewayService) checkPromptSize(req domain.InferenceRequest, model string) error {
	if s.maxPromptTokens <= 0 || s.tokens == nil {
		return nil
	}
	n, err := s.tokens.CountTokens(req.Prompt, model)
	if err != nil {
		n = (len(req.Prompt) + 3) / 4
	}
	if n > s.maxPromptTokens {
		return fmt.Errorf("prompt has %d tokens, limit is %d", n, s.maxPromptTokens)
	}
	return nil
}
