package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

func Test_writeError_Mapping(t *testing.T) {
	exhausted := domain.NewError(domain.KindAllAttemptsExhausted, "every credential and model failed",
		domain.Errorf(domain.KindQuotaExceeded, "status 429"))
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid argument", fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"invalid request", domain.Errorf(domain.KindInvalidRequest, "image is empty"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"schema", domain.Errorf(domain.KindSchemaViolation, "missing field status"), http.StatusBadRequest, "SCHEMA_VIOLATION"},
		{"malformed", domain.Errorf(domain.KindMalformedResponse, domain.ReasonInvalidJSON), http.StatusBadRequest, "MALFORMED_RESPONSE"},
		{"quota", domain.Errorf(domain.KindQuotaExceeded, "status 429"), http.StatusTooManyRequests, "QUOTA_EXCEEDED"},
		{"exhausted", exhausted, http.StatusTooManyRequests, "ALL_ATTEMPTS_EXHAUSTED"},
		{"canceled", domain.NewError(domain.KindCanceled, "caller canceled", context.Canceled), http.StatusRequestTimeout, "CANCELED"},
		{"timeout", domain.NewError(domain.KindTimeout, "call deadline exceeded", nil), http.StatusGatewayTimeout, "TIMEOUT"},
		{"rejected", domain.Errorf(domain.KindRejected, "status 403"), http.StatusBadGateway, "REJECTED"},
		{"no credentials", domain.Errorf(domain.KindNoCredentials, "credential pool is empty"), http.StatusServiceUnavailable, "NO_CREDENTIALS"},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			rw := httptest.NewRecorder()
			writeError(rw, r, c.err, nil)
			res := rw.Result()
			defer func() { _ = res.Body.Close() }()
			if res.StatusCode != c.wantStatus {
				t.Fatalf("status: got %d want %d", res.StatusCode, c.wantStatus)
			}
			var e errorEnvelope
			if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if e.Code != c.wantCode {
				t.Fatalf("code: got %s want %s", e.Code, c.wantCode)
			}
			if e.Error == "" {
				t.Fatalf("error message missing")
			}
		})
	}
}

func Test_writeError_QuotaHintAndInternalMessage(t *testing.T) {
	rw := httptest.NewRecorder()
	writeError(rw, httptest.NewRequest(http.MethodPost, "/", nil), domain.Errorf(domain.KindQuotaExceeded, "status 429"), nil)
	if !json.Valid(rw.Body.Bytes()) {
		t.Fatalf("invalid json")
	}
	var e struct {
		Details map[string]string `json:"details"`
	}
	_ = json.Unmarshal(rw.Body.Bytes(), &e)
	if e.Details["hint"] == "" {
		t.Fatalf("expected retry hint, got %s", rw.Body.String())
	}

	rw = httptest.NewRecorder()
	writeError(rw, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("db password=hunter2"), nil)
	var env errorEnvelope
	_ = json.Unmarshal(rw.Body.Bytes(), &env)
	if env.Error != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("internal errors must not leak detail, got %q", env.Error)
	}
}
