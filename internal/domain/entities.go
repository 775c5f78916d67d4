// Package domain defines the inference gateway's entities, error taxonomy and ports.
package domain

import (
	"context"
	"time"
)

// Context is an alias so adapters and usecases share one context type.
type Context = context.Context

// TaskKind identifies which decision the gateway is asked to make.
type TaskKind string

const (
	TaskVerifyComponent TaskKind = "verify_component"
	TaskEstimatePricing TaskKind = "estimate_pricing"
	TaskEstimateWaste   TaskKind = "estimate_waste"
)

// TaskKinds lists every task in a stable order.
var TaskKinds = []TaskKind{TaskVerifyComponent, TaskEstimatePricing, TaskEstimateWaste}

// Valid reports whether k is a known task kind.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskVerifyComponent, TaskEstimatePricing, TaskEstimateWaste:
		return true
	}
	return false
}

// InlineData is a binary payload sent alongside the prompt (base64 on the wire).
type InlineData struct {
	MIMEType string
	Data     []byte
}

// InferenceRequest is built once per facade call and never mutated afterwards.
// Deadline bounds every single attempt, not the whole call.
type InferenceRequest struct {
	Task        TaskKind
	Prompt      string
	Inline      *InlineData
	Temperature *float64
	Deadline    time.Duration
}

// NewInferenceRequest copies the inline payload so later changes to the
// caller's buffer cannot leak into an in-flight request.
func NewInferenceRequest(task TaskKind, prompt string, inline *InlineData, temperature *float64, deadline time.Duration) InferenceRequest {
	req := InferenceRequest{Task: task, Prompt: prompt, Deadline: deadline}
	if inline != nil {
		data := make([]byte, len(inline.Data))
		copy(data, inline.Data)
		req.Inline = &InlineData{MIMEType: inline.MIMEType, Data: data}
	}
	if temperature != nil {
		t := *temperature
		req.Temperature = &t
	}
	return req
}

// RawResponse is what the dispatcher hands back on a 2xx provider reply.
type RawResponse struct {
	StatusCode     int
	Body           []byte
	Text           string
	HasText        bool
	CandidateCount int
	FinishReason   string
}

// AttemptOutcome is the result of one dispatch attempt.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
)

// AttemptRecord is kept only for the lifetime of one facade call.
type AttemptRecord struct {
	CredentialIndex int
	Model           string
	Attempt         int
	Outcome         AttemptOutcome
	Latency         time.Duration
	ErrKind         ErrorKind
}

// VerificationStatus is the verdict for a submitted component photo.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "verified"
	StatusMismatch VerificationStatus = "mismatch"
)

// Condition grades the physical state of a verified component.
type Condition string

const (
	ConditionMint    Condition = "Mint"
	ConditionGood    Condition = "Good"
	ConditionFair    Condition = "Fair"
	ConditionPoor    Condition = "Poor"
	ConditionUnknown Condition = ""
)

// VerificationResult is the validated answer to a verify-component call.
type VerificationResult struct {
	Status          VerificationStatus `json:"status"`
	Condition       Condition          `json:"condition,omitempty"`
	Confidence      float64            `json:"confidence"`
	Reasoning       string             `json:"reasoning"`
	DetectedObjects []string           `json:"detected_objects,omitempty"`
	// Downgraded is set when a "verified" answer fell below the confidence threshold.
	Downgraded bool `json:"downgraded,omitempty"`
}

// PricingResult maps item ids to non-negative integer prices.
type PricingResult struct {
	Prices map[string]int64 `json:"prices"`
	Total  *int64           `json:"total,omitempty"`
}

// WithDefaults fills ids the provider did not price from the caller's own values.
// The gate never invents prices; this is the caller-side fallback.
func (p PricingResult) WithDefaults(defaults map[string]int64) PricingResult {
	out := PricingResult{Prices: make(map[string]int64, len(p.Prices)+len(defaults)), Total: p.Total}
	for id, v := range p.Prices {
		out.Prices[id] = v
	}
	for id, v := range defaults {
		if _, ok := out.Prices[id]; !ok {
			out.Prices[id] = v
		}
	}
	return out
}

// Sum returns Total when present, otherwise the sum of all prices.
func (p PricingResult) Sum() int64 {
	if p.Total != nil {
		return *p.Total
	}
	var s int64
	for _, v := range p.Prices {
		s += v
	}
	return s
}

// WasteEstimate is the landfill-diversion estimate for harvested components.
type WasteEstimate struct {
	TotalKg   float64 `json:"total_kg"`
	Breakdown string  `json:"breakdown,omitempty"`
}

// ComponentRef names a harvested component and the device it came from.
type ComponentRef struct {
	Name   string `json:"name"`
	Device string `json:"device"`
}

// PricingQuery carries the free-form pricing context and the ids the caller wants priced.
type PricingQuery struct {
	Context string
	ItemIDs []string
}

// Listing is a marketplace item whose price the edge endpoint converts.
type Listing struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
