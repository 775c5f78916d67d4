package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/ai"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	obsctx "github.com/fairyhunter13/harvest-gateway/internal/observability"
)

// callState is the stage a single attempt reached before it finished.
type callState int

const (
	stateBuilding callState = iota
	stateDispatching
	stateExtracting
	stateValidating
	stateDone
)

func (s callState) String() string {
	switch s {
	case stateBuilding:
		return "building"
	case stateDispatching:
		return "dispatching"
	case stateExtracting:
		return "extracting"
	case stateValidating:
		return "validating"
	case stateDone:
		return "done"
	}
	return "unknown"
}

type validateFunc[T any] func(json.RawMessage) (T, error)

// call is the per-invocation scratch space. Nothing in it outlives execute.
type call struct {
	task    domain.TaskKind
	lg      *slog.Logger
	records []domain.AttemptRecord
	lastErr error
}

func (c *call) fail(kind domain.ErrorKind, reason string, cause error) error {
	ge := domain.NewError(kind, reason, cause)
	ge.Attempts = append([]domain.AttemptRecord(nil), c.records...)
	observability.ObserveCall(string(c.task), kind.String())
	c.lg.Warn("inference call failed",
		slog.String("kind", kind.String()),
		slog.String("reason", reason),
		slog.Int("attempts", len(c.records)))
	return ge
}

// contextFailure maps a finished call context to Timeout or Canceled.
func (c *call) contextFailure(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return c.fail(domain.KindTimeout, "call deadline exceeded", c.lastErr)
	}
	return c.fail(domain.KindCanceled, "caller canceled", c.lastErr)
}

// execute walks the (credential, model) pairs in order, credential outer and
// model inner, and returns the first answer that passes validate. Attempts
// are strictly sequential and never exceed credentials x models x per-pair cap.
func execute[T any](ctx context.Context, s *GatewayService, req domain.InferenceRequest, validate validateFunc[T]) (T, error) {
	var zero T

	callID := uuid.NewString()
	ctx, lg := obsctx.WithCall(ctx, callID, string(req.Task))
	c := &call{task: req.Task, lg: lg}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	models := s.chain.Models(req.Task)
	if len(models) == 0 {
		return zero, c.fail(domain.KindInvalidRequest, "no models configured for task", nil)
	}
	if err := s.checkPromptSize(req, models[0]); err != nil {
		return zero, c.fail(domain.KindInvalidRequest, err.Error(), nil)
	}

	budget := s.scheduler.Budget(s.pool.Len(), len(models))
	lg.Debug("inference call started",
		slog.Int("credentials", s.pool.Len()),
		slog.Any("models", models),
		slog.Int("budget", budget))

	for cred, ok := s.pool.Next(-1); ok; cred, ok = s.pool.Next(cred.Index()) {
		for _, model := range models {
			pair := s.scheduler.NewPair(ctx)
			for {
				if ctx.Err() != nil {
					return zero, c.contextFailure(ctx)
				}
				if len(c.records) >= budget {
					return zero, c.fail(domain.KindAllAttemptsExhausted, "attempt budget spent", c.lastErr)
				}

				out, state, err := runAttempt(ctx, s, c, req, cred, model, pair.Attempts()+1, validate)
				if err == nil {
					observability.ObserveCall(string(req.Task), string(domain.OutcomeSuccess))
					lg.Info("inference call succeeded",
						slog.Int("credential_index", cred.Index()),
						slog.String("model", model),
						slog.Int("attempts", len(c.records)))
					return out, nil
				}
				c.lastErr = err
				if ctx.Err() != nil {
					return zero, c.contextFailure(ctx)
				}

				kind := domain.KindOf(err)
				decision := s.scheduler.Next(pair, kind)
				lg.Warn("inference attempt failed",
					slog.Int("credential_index", cred.Index()),
					slog.String("model", model),
					slog.Int("attempt", pair.Attempts()),
					slog.String("failed_at", state.String()),
					slog.String("kind", kind.String()),
					slog.String("reason", domain.ReasonOf(err)),
					slog.String("next", decision.Action.String()),
					slog.Duration("delay", decision.Delay))

				switch decision.Action {
				case ai.ActionAbort:
					return zero, c.fail(kind, domain.ReasonOf(err), errors.Unwrap(err))
				case ai.ActionRetry:
					if err := ai.Wait(ctx, decision.Delay); err != nil {
						return zero, c.contextFailure(ctx)
					}
					continue
				}
				break // advance to the next pair
			}
		}
	}
	return zero, c.fail(domain.KindAllAttemptsExhausted, "every credential and model failed", c.lastErr)
}

// runAttempt runs one dispatch through extraction and validation and records it.
func runAttempt[T any](
	ctx context.Context,
	s *GatewayService,
	c *call,
	req domain.InferenceRequest,
	cred domain.Credential,
	model string,
	n int,
	validate validateFunc[T],
) (T, callState, error) {
	var (
		out   T
		state = stateBuilding
		err   error
	)
	start := time.Now()

	if s.limiter != nil {
		allowed, retryAfter, lerr := s.limiter.Allow(ctx, cred.Fingerprint(), 1)
		if lerr != nil {
			c.lg.Warn("outbound limiter unavailable, allowing", slog.Any("error", lerr))
		} else if !allowed {
			observability.ObserveThrottled()
			err = domain.Errorf(domain.KindQuotaExceeded, "throttled locally, retry after %s", retryAfter.Round(time.Millisecond))
		}
	}

	if err == nil {
		state = stateDispatching
		var raw domain.RawResponse
		raw, err = s.dispatcher.Dispatch(ctx, req, cred, model)
		if err == nil {
			state = stateExtracting
			var payload json.RawMessage
			payload, err = s.extractor.Extract(raw)
			if err == nil {
				state = stateValidating
				out, err = validate(payload)
			}
		}
	}
	if err != nil && domain.KindOf(err) == "" {
		err = domain.NewError(domain.KindTransient, "unclassified failure", err)
	}

	latency := time.Since(start)
	rec := domain.AttemptRecord{
		CredentialIndex: cred.Index(),
		Model:           model,
		Attempt:         n,
		Outcome:         domain.OutcomeSuccess,
		Latency:         latency,
	}
	outcome := string(domain.OutcomeSuccess)
	if err != nil {
		rec.Outcome = domain.OutcomeFailure
		rec.ErrKind = domain.KindOf(err)
		outcome = rec.ErrKind.String()
		if rec.ErrKind == domain.KindMalformedResponse {
			observability.ObserveMalformed(domain.ReasonOf(err))
		}
	} else {
		state = stateDone
	}
	c.records = append(c.records, rec)
	observability.ObserveAttempt(string(req.Task), model, outcome, latency)
	if s.onAttempt != nil {
		s.onAttempt(rec)
	}
	return out, state, err
}
