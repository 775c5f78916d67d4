// Package httpserver contains the edge HTTP handlers and middleware.
//
// Handlers decode and validate client input, call the gateway facade and
// map its error taxonomy onto HTTP statuses in one place.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	}
	switch domain.KindOf(err) {
	case domain.KindInvalidRequest, domain.KindSchemaViolation, domain.KindMalformedResponse:
		return http.StatusBadRequest, domain.KindOf(err).String()
	case domain.KindQuotaExceeded, domain.KindAllAttemptsExhausted:
		return http.StatusTooManyRequests, domain.KindOf(err).String()
	case domain.KindCanceled:
		return http.StatusRequestTimeout, domain.KindCanceled.String()
	case domain.KindTimeout:
		return http.StatusGatewayTimeout, domain.KindTimeout.String()
	case domain.KindRejected, domain.KindTransient:
		return http.StatusBadGateway, domain.KindOf(err).String()
	case domain.KindNoCredentials:
		return http.StatusServiceUnavailable, domain.KindNoCredentials.String()
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details any) {
	status, code := statusFor(err)
	if details == nil && status == http.StatusTooManyRequests {
		details = map[string]string{"hint": "the inference provider is busy, retry later"}
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	lg := LoggerFrom(r)
	if status >= 500 {
		lg.Error("request failed", "code", code, "error", err.Error())
	} else {
		lg.Info("request rejected", "code", code, "error", err.Error())
	}
	writeJSON(w, status, errorEnvelope{Error: msg, Code: code, Details: details})
}
