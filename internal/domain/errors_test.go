package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_Sentinel(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected error
	}{
		{KindNoCredentials, ErrNoCredentials},
		{KindQuotaExceeded, ErrQuotaExceeded},
		{KindTimeout, ErrTimeout},
		{KindMalformedResponse, ErrMalformedResponse},
		{KindSchemaViolation, ErrSchemaViolation},
		{KindAllAttemptsExhausted, ErrAllAttemptsExhausted},
		{KindCanceled, ErrCanceled},
		{KindInvalidRequest, ErrInvalidRequest},
		{KindRejected, ErrRejected},
		{KindTransient, ErrTransient},
		{ErrorKind("BOGUS"), nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Sentinel(); got != tt.expected {
				t.Errorf("Sentinel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGatewayError_IsAndUnwrap(t *testing.T) {
	quota := NewError(KindQuotaExceeded, "http 429", nil)
	exhausted := NewError(KindAllAttemptsExhausted, "", quota)
	wrapped := fmt.Errorf("op=usecase.VerifyComponent: %w", exhausted)

	if !errors.Is(wrapped, ErrAllAttemptsExhausted) {
		t.Error("expected wrapped error to match ErrAllAttemptsExhausted")
	}
	if !errors.Is(wrapped, ErrQuotaExceeded) {
		t.Error("expected last attempt's quota error to be reachable")
	}
	if errors.Is(wrapped, ErrTimeout) {
		t.Error("did not expect ErrTimeout")
	}
	if got := KindOf(wrapped); got != KindAllAttemptsExhausted {
		t.Errorf("KindOf() = %q, want %q", got, KindAllAttemptsExhausted)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestGatewayError_Message(t *testing.T) {
	err := NewError(KindMalformedResponse, ReasonInvalidJSON, context.DeadlineExceeded)
	want := "malformed response: invalid_json: context deadline exceeded"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if ReasonOf(err) != ReasonInvalidJSON {
		t.Errorf("ReasonOf() = %q", ReasonOf(err))
	}
	if got := Errorf(KindSchemaViolation, "field %s", "status").Error(); got != "schema violation: field status" {
		t.Errorf("Errorf message = %q", got)
	}
}
