package domain

import "time"

// Dispatcher issues exactly one provider call for one (credential, model) pair.
type Dispatcher interface {
	Dispatch(ctx Context, req InferenceRequest, cred Credential, model string) (RawResponse, error)
}

// Limiter throttles outbound calls per key. Implementations fail open.
type Limiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// TokenCounter counts prompt tokens for the prompt-size guard.
type TokenCounter interface {
	CountTokens(text, model string) (int, error)
}
