// Package gemini implements the request dispatcher against the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/harvest-gateway/internal/adapter/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/domain"
	obsctx "github.com/fairyhunter13/harvest-gateway/internal/observability"
)

const (
	// DefaultBaseURL is the public Gemini REST endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	defaultMaxResponseBytes = 2 << 20
	snippetBytes            = 512
	jsonMIMEType            = "application/json"
)

var _ domain.Dispatcher = (*Dispatcher)(nil)

// Dispatcher performs exactly one generateContent call per Dispatch.
// It never retries; the retry scheduler owns that decision.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	maxBody    int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the HTTP client. Its transport must not log request URLs.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Dispatcher) {
		if hc != nil {
			d.httpClient = hc
		}
	}
}

// WithMaxResponseBytes bounds how much of a reply body is read.
func WithMaxResponseBytes(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBody = n
		}
	}
}

// New creates a dispatcher for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	d := &Dispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		// per-attempt deadlines come from the request context
		httpClient: &http.Client{},
		maxBody:    defaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends req to model using cred. A 2xx reply with a readable envelope
// returns a RawResponse; everything else returns a classified *domain.GatewayError.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.InferenceRequest, cred domain.Credential, model string) (domain.RawResponse, error) {
	lg := obsctx.LoggerFromContext(ctx)

	ctx, span := observability.Tracer().Start(ctx, "gemini.generateContent",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", "gemini"),
			attribute.String("gen_ai.request.model", model),
			attribute.String("gateway.task", string(req.Task)),
			attribute.Int("gateway.credential_index", cred.Index()),
		))
	defer span.End()

	raw, err := d.dispatch(ctx, req, cred, model, lg)
	if err != nil {
		span.SetStatus(codes.Error, domain.KindOf(err).String())
		span.SetAttributes(attribute.String("gateway.error_kind", domain.KindOf(err).String()))
	} else {
		span.SetAttributes(
			attribute.Int("http.response.status_code", raw.StatusCode),
			attribute.Int("gen_ai.response.candidates", raw.CandidateCount),
		)
	}
	return raw, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req domain.InferenceRequest, cred domain.Credential, model string, lg *slog.Logger) (domain.RawResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawResponse{}, classifyTransport(ctx, ctx, err)
	}

	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return domain.RawResponse{}, domain.NewError(domain.KindInvalidRequest, "encode request", err)
	}

	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if req.Deadline > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, req.Deadline)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, d.endpoint(model, cred), bytes.NewReader(body))
	if err != nil {
		return domain.RawResponse{}, domain.NewError(domain.KindInvalidRequest, "build request", scrubURL(err))
	}
	httpReq.Header.Set("Content-Type", jsonMIMEType)
	httpReq.Header.Set("Accept", jsonMIMEType)

	start := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		gerr := classifyTransport(ctx, attemptCtx, err)
		lg.Warn("ai provider request failed",
			slog.String("provider", "gemini"),
			slog.String("model", model),
			slog.Any("credential", cred),
			slog.String("kind", gerr.Kind.String()),
			slog.Duration("latency", time.Since(start)),
			slog.Any("error", gerr.Err))
		return domain.RawResponse{}, gerr
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			lg.Debug("failed to close response body", slog.Any("error", closeErr))
		}
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return domain.RawResponse{}, classifyTransport(ctx, attemptCtx, err)
	}
	if int64(len(payload)) > d.maxBody {
		return domain.RawResponse{}, domain.NewError(domain.KindMalformedResponse, domain.ReasonOversize,
			fmt.Errorf("body exceeds %d bytes", d.maxBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := classifyStatus(resp.StatusCode, payload)
		attrs := []slog.Attr{
			slog.String("provider", "gemini"),
			slog.String("model", model),
			slog.Any("credential", cred),
			slog.Int("status", resp.StatusCode),
			slog.String("kind", kind.String()),
			slog.String("body", snippet(payload)),
		}
		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		lg.LogAttrs(ctx, level, "ai provider non-2xx", attrs...)
		return domain.RawResponse{StatusCode: resp.StatusCode, Body: payload},
			domain.Errorf(kind, "status %d", resp.StatusCode)
	}

	var env generateResponse
	if err := json.Unmarshal(payload, &env); err != nil {
		return domain.RawResponse{}, domain.NewError(domain.KindMalformedResponse, domain.ReasonInvalidEnvelope, err)
	}
	if env.Error != nil && env.Error.Status == statusResourceExhausted {
		lg.Warn("ai provider quota error in 2xx body",
			slog.String("provider", "gemini"),
			slog.String("model", model),
			slog.Any("credential", cred))
		return domain.RawResponse{StatusCode: resp.StatusCode, Body: payload},
			domain.Errorf(domain.KindQuotaExceeded, "status %d: %s", resp.StatusCode, statusResourceExhausted)
	}

	text, ok := env.firstText()
	raw := domain.RawResponse{
		StatusCode:     resp.StatusCode,
		Body:           payload,
		Text:           text,
		HasText:        ok,
		CandidateCount: len(env.Candidates),
	}
	if len(env.Candidates) > 0 {
		raw.FinishReason = env.Candidates[0].FinishReason
	}
	if !ok {
		attrs := []any{
			slog.String("provider", "gemini"),
			slog.String("model", model),
			slog.Int("candidates", raw.CandidateCount),
			slog.String("finish_reason", raw.FinishReason),
		}
		if env.PromptFeedback != nil && env.PromptFeedback.BlockReason != "" {
			attrs = append(attrs, slog.String("block_reason", env.PromptFeedback.BlockReason))
		}
		lg.Warn("ai provider returned no completion text", attrs...)
	}
	return raw, nil
}

// endpoint is the only place the secret is placed on the wire. The URL is never logged.
func (d *Dispatcher) endpoint(model string, cred domain.Credential) string {
	q := url.Values{}
	q.Set("key", cred.Secret())
	return d.baseURL + "/models/" + url.PathEscape(model) + ":generateContent?" + q.Encode()
}

func buildRequest(req domain.InferenceRequest) generateRequest {
	parts := []part{{Text: req.Prompt}}
	if req.Inline != nil && len(req.Inline.Data) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: req.Inline.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Inline.Data),
		}})
	}
	return generateRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: jsonMIMEType,
			Temperature:      req.Temperature,
		},
	}
}

func snippet(b []byte) string {
	if len(b) > snippetBytes {
		b = b[:snippetBytes]
	}
	return string(b)
}
