package config

import (
	"testing"
	"time"
)

func TestConfig_GetRetryConfig_MapsFields(t *testing.T) {
	cfg := Config{
		QuotaRetryDelay:     3 * time.Second,
		PerPairRetryCap:     4,
		ConfidenceThreshold: 0.98,
		CallTimeout:         time.Minute,
	}

	rc := cfg.GetRetryConfig()

	if rc.QuotaDelay != cfg.QuotaRetryDelay {
		t.Fatalf("QuotaDelay = %v, want %v", rc.QuotaDelay, cfg.QuotaRetryDelay)
	}
	if rc.PerPairCap != cfg.PerPairRetryCap {
		t.Fatalf("PerPairCap = %d, want %d", rc.PerPairCap, cfg.PerPairRetryCap)
	}
	if rc.ConfidenceThreshold != cfg.ConfidenceThreshold {
		t.Fatalf("ConfidenceThreshold = %v, want %v", rc.ConfidenceThreshold, cfg.ConfidenceThreshold)
	}
	if rc.CallTimeout != cfg.CallTimeout {
		t.Fatalf("CallTimeout = %v, want %v", rc.CallTimeout, cfg.CallTimeout)
	}
}

func TestConfig_GetRetryConfig_FallsBackToDefaults(t *testing.T) {
	rc := Config{QuotaRetryDelay: -1, PerPairRetryCap: 0, ConfidenceThreshold: 1.5}.GetRetryConfig()

	if rc.QuotaDelay != DefaultQuotaRetryDelay {
		t.Fatalf("QuotaDelay = %v, want %v", rc.QuotaDelay, DefaultQuotaRetryDelay)
	}
	if rc.PerPairCap != DefaultPerPairRetryCap {
		t.Fatalf("PerPairCap = %d, want %d", rc.PerPairCap, DefaultPerPairRetryCap)
	}
	if rc.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Fatalf("ConfidenceThreshold = %v, want %v", rc.ConfidenceThreshold, DefaultConfidenceThreshold)
	}
}

func TestConfig_GetRetryConfig_ThresholdNeverLoosens(t *testing.T) {
	rc := Config{ConfidenceThreshold: 0.5}.GetRetryConfig()
	if rc.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Fatalf("ConfidenceThreshold = %v, want %v", rc.ConfidenceThreshold, DefaultConfidenceThreshold)
	}
}

func TestConfig_GetRetryConfig_TestEnv(t *testing.T) {
	rc := Config{AppEnv: "test", QuotaRetryDelay: 5 * time.Second, PerPairRetryCap: 2}.GetRetryConfig()
	if rc.QuotaDelay != 10*time.Millisecond {
		t.Fatalf("QuotaDelay = %v, want 10ms in test env", rc.QuotaDelay)
	}
}
