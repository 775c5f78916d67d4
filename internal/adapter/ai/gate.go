// Package ai provides per-task schema validation of extracted JSON.
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

// DefaultConfidenceThreshold is the floor for a "verified" verdict.
const DefaultConfidenceThreshold = 0.95

// Gate enforces the per-task schema and the verification confidence threshold.
type Gate struct {
	ConfidenceThreshold float64
}

// NewGate creates a gate. The threshold can only be raised above
// DefaultConfidenceThreshold; lower or out-of-range values use the default.
func NewGate(threshold float64) *Gate {
	if threshold > 1 {
		threshold = DefaultConfidenceThreshold
	}
	return &Gate{ConfidenceThreshold: math.Max(threshold, DefaultConfidenceThreshold)}
}

func schemaErr(format string, args ...any) error {
	return domain.Errorf(domain.KindSchemaViolation, format, args...)
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, schemaErr("expected a JSON object")
	}
	return obj, nil
}

// ValidateVerification checks a verify-component payload and applies the threshold.
func (g *Gate) ValidateVerification(raw json.RawMessage) (domain.VerificationResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	var res domain.VerificationResult

	statusRaw, ok := obj["status"]
	if !ok {
		return res, schemaErr("missing field status")
	}
	var status string
	if err := json.Unmarshal(statusRaw, &status); err != nil {
		return res, schemaErr("status must be a string")
	}
	switch domain.VerificationStatus(status) {
	case domain.StatusVerified, domain.StatusMismatch:
		res.Status = domain.VerificationStatus(status)
	default:
		return res, schemaErr("status %q is not verified or mismatch", status)
	}

	confRaw, ok := obj["confidence"]
	if !ok || isNull(confRaw) {
		return res, schemaErr("missing field confidence")
	}
	var conf float64
	if err := json.Unmarshal(confRaw, &conf); err != nil {
		return res, schemaErr("confidence must be a number")
	}
	if math.IsNaN(conf) || conf < 0 || conf > 1 {
		return res, schemaErr("confidence %v outside [0,1]", conf)
	}
	res.Confidence = conf

	if c, ok := obj["condition"]; ok {
		var s string
		if json.Unmarshal(c, &s) == nil {
			res.Condition = normalizeCondition(s)
		}
	}
	if r, ok := obj["reasoning"]; ok {
		if err := json.Unmarshal(r, &res.Reasoning); err != nil {
			return domain.VerificationResult{}, schemaErr("reasoning must be a string")
		}
	}
	if d, ok := obj["detected_objects"]; ok && !isNull(d) {
		if err := json.Unmarshal(d, &res.DetectedObjects); err != nil {
			return domain.VerificationResult{}, schemaErr("detected_objects must be a list of strings")
		}
	}

	if res.Status == domain.StatusVerified && res.Confidence < g.ConfidenceThreshold {
		slog.Debug("verification downgraded below confidence threshold",
			slog.Float64("confidence", res.Confidence),
			slog.Float64("threshold", g.ConfidenceThreshold))
		res.Status = domain.StatusMismatch
		res.Downgraded = true
	}
	return res, nil
}

func normalizeCondition(s string) domain.Condition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mint":
		return domain.ConditionMint
	case "good":
		return domain.ConditionGood
	case "fair":
		return domain.ConditionFair
	case "poor":
		return domain.ConditionPoor
	default:
		return domain.ConditionUnknown
	}
}

// ValidatePricing accepts {"id": price} or [{"id":..., "price_inr"|"price":...}].
// When requestedIDs is non-empty, other keys are ignored. Missing ids stay missing.
func (g *Gate) ValidatePricing(raw json.RawMessage, requestedIDs []string) (domain.PricingResult, error) {
	entries, total, err := pricingEntries(raw)
	if err != nil {
		return domain.PricingResult{}, err
	}

	var wanted map[string]struct{}
	if len(requestedIDs) > 0 {
		wanted = make(map[string]struct{}, len(requestedIDs))
		for _, id := range requestedIDs {
			wanted[id] = struct{}{}
		}
	}

	res := domain.PricingResult{Prices: make(map[string]int64, len(entries))}
	for id, v := range entries {
		if wanted != nil {
			if _, ok := wanted[id]; !ok {
				continue
			}
		}
		price, err := coercePrice(v)
		if err != nil {
			return domain.PricingResult{}, schemaErr("price for %q: %v", id, err)
		}
		res.Prices[id] = price
	}
	if total != nil {
		t, err := coercePrice(total)
		if err != nil {
			return domain.PricingResult{}, schemaErr("total: %v", err)
		}
		res.Total = &t
	}
	return res, nil
}

var totalKeys = []string{"total", "total_yield_inr"}

func pricingEntries(raw json.RawMessage) (map[string]json.RawMessage, json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, schemaErr("expected a list of priced items")
		}
		out := make(map[string]json.RawMessage, len(items))
		for i, item := range items {
			id, err := itemID(item["id"])
			if err != nil {
				return nil, nil, schemaErr("item %d: %v", i, err)
			}
			price, ok := item["price_inr"]
			if !ok {
				price, ok = item["price"]
			}
			if !ok {
				return nil, nil, schemaErr("item %q has no price", id)
			}
			out[id] = price
		}
		return out, nil, nil
	}

	obj, err := decodeObject(raw)
	if err != nil {
		return nil, nil, err
	}
	var total json.RawMessage
	for _, k := range totalKeys {
		if v, ok := obj[k]; ok {
			if total == nil {
				total = v
			}
			delete(obj, k)
		}
	}
	return obj, total, nil
}

func itemID(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("id must be a string or number")
}

// coercePrice accepts a JSON number or numeric string and rounds up to an integer.
func coercePrice(raw json.RawMessage) (int64, error) {
	f, err := coerceNumber(raw)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("negative value %v", f)
	}
	if f > math.MaxInt64/2 {
		return 0, fmt.Errorf("value %v out of range", f)
	}
	return int64(math.Ceil(f)), nil
}

func coerceNumber(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number")
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return f, nil
}

// ValidateWaste checks a waste payload; an absent total_kg means no estimate (0).
func (g *Gate) ValidateWaste(raw json.RawMessage) (domain.WasteEstimate, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return domain.WasteEstimate{}, err
	}
	var res domain.WasteEstimate
	if v, ok := obj["total_kg"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &res.TotalKg); err != nil {
			return domain.WasteEstimate{}, schemaErr("total_kg must be a number")
		}
		if res.TotalKg < 0 {
			return domain.WasteEstimate{}, schemaErr("total_kg %v is negative", res.TotalKg)
		}
	}
	if b, ok := obj["breakdown"]; ok && !isNull(b) {
		if err := json.Unmarshal(b, &res.Breakdown); err != nil {
			return domain.WasteEstimate{}, schemaErr("breakdown must be a string")
		}
	}
	return res, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
