package domain

import (
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTaskKind_Valid(t *testing.T) {
	for _, k := range TaskKinds {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if TaskKind("summarize").Valid() {
		t.Error("unknown task must not be valid")
	}
}

func TestNewInferenceRequest_CopiesInputs(t *testing.T) {
	data := []byte{1, 2, 3}
	temp := 0.7
	req := NewInferenceRequest(TaskVerifyComponent, "p", &InlineData{MIMEType: "image/png", Data: data}, &temp, 5*time.Second)

	data[0] = 9
	temp = 0.1

	if req.Inline.Data[0] != 1 {
		t.Error("inline data must be copied")
	}
	if *req.Temperature != 0.7 {
		t.Error("temperature must be copied")
	}
	if req.Deadline != 5*time.Second || req.Task != TaskVerifyComponent {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestPricingResult_WithDefaultsAndSum(t *testing.T) {
	p := PricingResult{Prices: map[string]int64{"a": 100}}
	filled := p.WithDefaults(map[string]int64{"a": 1, "b": 50})

	if filled.Prices["a"] != 100 || filled.Prices["b"] != 50 {
		t.Errorf("WithDefaults() = %v", filled.Prices)
	}
	if filled.Sum() != 150 {
		t.Errorf("Sum() = %d, want 150", filled.Sum())
	}
	if len(p.Prices) != 1 {
		t.Error("WithDefaults must not mutate the receiver")
	}

	total := int64(999)
	filled.Total = &total
	if filled.Sum() != 999 {
		t.Errorf("Sum() with Total = %d, want 999", filled.Sum())
	}
}

func TestCredential_NeverFormatsSecret(t *testing.T) {
	c := NewCredential(1, "AIzaSECRET")

	var b strings.Builder
	logger := slog.New(slog.NewTextHandler(&b, nil))
	logger.Info("dispatch", slog.Any("cred", c))

	for _, s := range []string{fmt.Sprint(c), fmt.Sprintf("%v %+v %#v %s", c, c, c, c), b.String()} {
		if strings.Contains(s, "SECRET") {
			t.Errorf("secret leaked in %q", s)
		}
	}
	if c.Secret() != "AIzaSECRET" || c.Index() != 1 {
		t.Error("accessors must return the wrapped values")
	}
	if len(c.Fingerprint()) != 12 || c.Fingerprint() == NewCredential(1, "other").Fingerprint() {
		t.Errorf("unexpected fingerprint %q", c.Fingerprint())
	}
}
