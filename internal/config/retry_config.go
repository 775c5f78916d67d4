// Package config defines retry and gate tuning.
package config

import (
	"time"
)

// RetryConfig holds the retry scheduler and validation gate tuning.
type RetryConfig struct {
	// QuotaDelay is the fixed wait before retrying a quota-limited pair
	QuotaDelay time.Duration
	// PerPairCap is the maximum number of attempts against one (credential, model) pair
	PerPairCap int
	// ConfidenceThreshold is the minimum confidence for a "verified" verdict
	ConfidenceThreshold float64
	// CallTimeout bounds a whole facade call, retries and waits included
	CallTimeout time.Duration
}

// GetRetryConfig returns retry tuning appropriate for the current environment.
// In test environments the quota delay is shortened for fast test execution.
func (c Config) GetRetryConfig() RetryConfig {
	rc := RetryConfig{
		QuotaDelay:          c.QuotaRetryDelay,
		PerPairCap:          c.PerPairRetryCap,
		ConfidenceThreshold: c.ConfidenceThreshold,
		CallTimeout:         c.CallTimeout,
	}
	if rc.QuotaDelay < 0 {
		rc.QuotaDelay = DefaultQuotaRetryDelay
	}
	if rc.PerPairCap <= 0 {
		rc.PerPairCap = DefaultPerPairRetryCap
	}
	if rc.ConfidenceThreshold < DefaultConfidenceThreshold || rc.ConfidenceThreshold > 1 {
		rc.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.IsTest() {
		rc.QuotaDelay = 10 * time.Millisecond
	}
	return rc
}
