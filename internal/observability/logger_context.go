// Package observability carries request-scoped logging context through the gateway.
package observability

import (
	"context"
	"log/slog"
)

// loggerContextKey is the private context key used to store a *slog.Logger.
type loggerContextKey struct{}

// requestIDContextKey stores the originating HTTP request_id.
type requestIDContextKey struct{}

// callIDContextKey stores the id of one gateway call.
type callIDContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if v := ctx.Value(loggerContextKey{}); v != nil {
		if lg, ok := v.(*slog.Logger); ok && lg != nil {
			return lg
		}
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request_id in the context so that
// the gateway can correlate its attempt logs with the originating HTTP request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request_id from the context, or an empty
// string when none is present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDContextKey{})
}

// ContextWithCallID stores the gateway call id.
func ContextWithCallID(ctx context.Context, callID string) context.Context {
	if ctx == nil || callID == "" {
		return ctx
	}
	return context.WithValue(ctx, callIDContextKey{}, callID)
}

// CallIDFromContext retrieves the gateway call id, or "".
func CallIDFromContext(ctx context.Context) string {
	return stringValue(ctx, callIDContextKey{})
}

// WithCall derives a context whose logger carries call_id and task on top of
// whatever the request-scoped logger already holds.
func WithCall(ctx context.Context, callID, task string) (context.Context, *slog.Logger) {
	lg := LoggerFromContext(ctx).With(
		slog.String("call_id", callID),
		slog.String("task", task),
	)
	ctx = ContextWithCallID(ctx, callID)
	return ContextWithLogger(ctx, lg), lg
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
