package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy (sentinels)
var (
	ErrNoCredentials        = errors.New("no credentials")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrTimeout              = errors.New("timeout")
	ErrMalformedResponse    = errors.New("malformed response")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrAllAttemptsExhausted = errors.New("all attempts exhausted")
	ErrCanceled             = errors.New("canceled")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrRejected             = errors.New("rejected by provider")
	ErrTransient            = errors.New("transient upstream failure")
	ErrInvalidArgument      = errors.New("invalid argument")
)

// ErrorKind tags a GatewayError.
type ErrorKind string

const (
	KindNoCredentials        ErrorKind = "NO_CREDENTIALS"
	KindQuotaExceeded        ErrorKind = "QUOTA_EXCEEDED"
	KindTimeout              ErrorKind = "TIMEOUT"
	KindMalformedResponse    ErrorKind = "MALFORMED_RESPONSE"
	KindSchemaViolation      ErrorKind = "SCHEMA_VIOLATION"
	KindAllAttemptsExhausted ErrorKind = "ALL_ATTEMPTS_EXHAUSTED"
	KindCanceled             ErrorKind = "CANCELED"
	// KindInvalidRequest is a request-shape problem no other credential or model can fix.
	KindInvalidRequest ErrorKind = "INVALID_REQUEST"
	// KindRejected is a non-quota 4xx for one (credential, model) pair, e.g. 401/403/404.
	KindRejected ErrorKind = "REJECTED"
	// KindTransient covers 5xx replies and transport failures.
	KindTransient ErrorKind = "TRANSIENT"
)

var kindSentinels = map[ErrorKind]error{
	KindNoCredentials:        ErrNoCredentials,
	KindQuotaExceeded:        ErrQuotaExceeded,
	KindTimeout:              ErrTimeout,
	KindMalformedResponse:    ErrMalformedResponse,
	KindSchemaViolation:      ErrSchemaViolation,
	KindAllAttemptsExhausted: ErrAllAttemptsExhausted,
	KindCanceled:             ErrCanceled,
	KindInvalidRequest:       ErrInvalidRequest,
	KindRejected:             ErrRejected,
	KindTransient:            ErrTransient,
}

func (k ErrorKind) String() string { return string(k) }

// Sentinel returns the sentinel error for a kind.
func (k ErrorKind) Sentinel() error {
	if s, ok := kindSentinels[k]; ok {
		return s
	}
	return nil
}

// Malformed response reasons. They share one kind but stay distinct in logs and metrics.
const (
	ReasonNoCandidates      = "no_candidates"
	ReasonEmptyCompletion   = "empty_completion"
	ReasonInvalidEnvelope   = "invalid_envelope"
	ReasonUnterminatedFence = "unterminated_fence"
	ReasonUnbalancedFence   = "unbalanced_fence"
	ReasonEmptyBody         = "empty_body"
	ReasonInvalidJSON       = "invalid_json"
	ReasonTrailingData      = "trailing_data"
	ReasonOversize          = "oversize_response"
)

// GatewayError is the only error shape the gateway surfaces to callers.
type GatewayError struct {
	Kind ErrorKind
	// Reason refines Kind (malformed reason, offending field, HTTP status).
	Reason string
	// Attempts is the attempt log of the call that produced the error, if any.
	Attempts []AttemptRecord
	Err      error
}

// NewError builds a GatewayError of the given kind.
func NewError(kind ErrorKind, reason string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Reason: reason, Err: cause}
}

// Errorf builds a GatewayError with a formatted reason.
func Errorf(kind ErrorKind, format string, args ...any) *GatewayError {
	return &GatewayError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	if s := e.Kind.Sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the sentinel of the error's own kind; wrapped causes are reached through Unwrap.
func (e *GatewayError) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

func (e *GatewayError) Unwrap() error { return e.Err }

// KindOf returns the kind of the outermost GatewayError in err's chain.
func KindOf(err error) ErrorKind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// ReasonOf returns the reason of the outermost GatewayError in err's chain.
func ReasonOf(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return ""
}
