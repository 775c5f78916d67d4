// Package ai provides the retry scheduler deciding what follows a failed attempt.
package ai

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// Action is what the runner does after a failed attempt.
type Action int

const (
	// ActionRetry repeats the same (credential, model) pair after Decision.Delay.
	ActionRetry Action = iota + 1
	// ActionAdvance moves to the next pair.
	ActionAdvance
	// ActionAbort ends the whole call.
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionAdvance:
		return "advance"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Decision is the scheduler's verdict for one failed attempt.
type Decision struct {
	Action Action
	Delay  time.Duration
}

const (
	// DefaultQuotaRetryDelay is the fixed wait before retrying a quota-limited pair.
	DefaultQuotaRetryDelay = 2 * time.Second
	// DefaultPerPairRetryCap bounds attempts against one (credential, model) pair.
	DefaultPerPairRetryCap = 2
)

// RetryPolicy bounds retries against a single (credential, model) pair.
type RetryPolicy struct {
	QuotaDelay time.Duration
	PerPairCap int
}

// DefaultRetryPolicy waits DefaultQuotaRetryDelay after a quota rejection and
// tries each pair at most DefaultPerPairRetryCap times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{QuotaDelay: DefaultQuotaRetryDelay, PerPairCap: DefaultPerPairRetryCap}
}

// Scheduler classifies failures into retry, advance or abort.
type Scheduler struct {
	policy RetryPolicy
}

// NewScheduler creates a scheduler; non-positive caps fall back to the default policy.
func NewScheduler(policy RetryPolicy) *Scheduler {
	def := DefaultRetryPolicy()
	if policy.PerPairCap <= 0 {
		policy.PerPairCap = def.PerPairCap
	}
	if policy.QuotaDelay < 0 {
		policy.QuotaDelay = def.QuotaDelay
	}
	return &Scheduler{policy: policy}
}

// Policy returns the effective policy.
func (s *Scheduler) Policy() RetryPolicy { return s.policy }

// Budget is the upper bound of attempts for n credentials and m models.
func (s *Scheduler) Budget(n, m int) int { return n * m * s.policy.PerPairCap }

// PairState tracks attempts made against one (credential, model) pair.
type PairState struct {
	attempts         int
	transientRetried bool
	quota            backoff.BackOff
}

// Attempts returns how many attempts have been charged to the pair.
func (p *PairState) Attempts() int { return p.attempts }

// NewPair starts accounting for a fresh (credential, model) pair.
func (s *Scheduler) NewPair(ctx context.Context) *PairState {
	var retries uint64
	if s.policy.PerPairCap > 1 {
		retries = uint64(s.policy.PerPairCap - 1)
	}
	quota := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.policy.QuotaDelay), retries),
		ctx,
	)
	return &PairState{quota: quota}
}

// Next charges one failed attempt of the given kind to the pair and decides what follows.
func (s *Scheduler) Next(p *PairState, kind domain.ErrorKind) Decision {
	p.attempts++
	switch kind {
	case domain.KindQuotaExceeded:
		if p.attempts >= s.policy.PerPairCap {
			return Decision{Action: ActionAdvance}
		}
		d := p.quota.NextBackOff()
		if d == backoff.Stop {
			return Decision{Action: ActionAdvance}
		}
		return Decision{Action: ActionRetry, Delay: d}
	case domain.KindTransient:
		if p.transientRetried || p.attempts >= s.policy.PerPairCap {
			return Decision{Action: ActionAdvance}
		}
		p.transientRetried = true
		return Decision{Action: ActionRetry}
	case domain.KindInvalidRequest, domain.KindCanceled, domain.KindNoCredentials:
		return Decision{Action: ActionAbort}
	default:
		// Timeout, MalformedResponse, SchemaViolation, Rejected
		return Decision{Action: ActionAdvance}
	}
}

// Wait sleeps for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
