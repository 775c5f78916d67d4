package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

const (
	statusResourceExhausted  = "RESOURCE_EXHAUSTED"
	statusFailedPrecondition = "FAILED_PRECONDITION"
	reasonAPIKeyInvalid      = "API_KEY_INVALID"
)

// classifyStatus maps a non-2xx reply to an error kind. Every 400 is a
// request problem except an invalid key or an unsupported region
// (FAILED_PRECONDITION), which belong to the credential.
func classifyStatus(code int, body []byte) domain.ErrorKind {
	apiErr := parseAPIError(body)
	if apiErr != nil && apiErr.Status == statusResourceExhausted {
		return domain.KindQuotaExceeded
	}
	switch {
	case code == http.StatusTooManyRequests:
		return domain.KindQuotaExceeded
	case code == http.StatusBadRequest:
		if apiErr != nil && (apiErr.Status == statusFailedPrecondition || apiErr.hasReason(reasonAPIKeyInvalid)) {
			return domain.KindRejected
		}
		return domain.KindInvalidRequest
	case code == http.StatusRequestEntityTooLarge, code == http.StatusUnprocessableEntity:
		return domain.KindInvalidRequest
	case code >= 400 && code < 500:
		return domain.KindRejected
	default:
		return domain.KindTransient
	}
}

func parseAPIError(body []byte) *apiError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env.Error
}

func (e *apiError) hasReason(reason string) bool {
	for _, d := range e.Details {
		if d.Reason == reason {
			return true
		}
	}
	return false
}

// classifyTransport turns a failed round trip into Canceled, Timeout or
// Transient. The returned cause never carries the request URL.
func classifyTransport(parent, attempt context.Context, err error) *domain.GatewayError {
	cause := scrubURL(err)
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return domain.NewError(domain.KindCanceled, "caller canceled", context.Canceled)
	case errors.Is(parent.Err(), context.DeadlineExceeded):
		return domain.NewError(domain.KindTimeout, "call deadline exceeded", context.DeadlineExceeded)
	case errors.Is(attempt.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return domain.NewError(domain.KindTimeout, "attempt deadline exceeded", cause)
	default:
		var ue *url.Error
		if errors.As(err, &ue) && ue.Timeout() {
			return domain.NewError(domain.KindTimeout, "transport timeout", cause)
		}
		return domain.NewError(domain.KindTransient, "transport error", cause)
	}
}

// scrubURL drops the *url.Error wrapper, whose message embeds the URL and with it the key.
func scrubURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
