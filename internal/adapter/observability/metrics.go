package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	InferenceAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_attempts_total",
			Help: "Provider attempts by task, model and outcome (success or error kind)",
		},
		[]string{"task", "model", "outcome"},
	)
	InferenceAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_attempt_duration_seconds",
			Help:    "Provider attempt latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"task", "model"},
	)
	InferenceCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_calls_total",
			Help: "Gateway calls by task and final result",
		},
		[]string{"task", "result"},
	)
	InferenceMalformedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inference_malformed_total",
			Help: "Malformed provider responses by reason",
		},
		[]string{"reason"},
	)
	InferenceThrottledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "inference_throttled_total",
			Help: "Attempts skipped by the outbound rate limiter",
		},
	)

	VerificationConfidenceHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verification_confidence",
			Help:    "Distribution of provider confidence for component verification",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		},
	)
	VerificationDowngradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_downgrades_total",
			Help: "Verified answers downgraded to mismatch for low confidence",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(InferenceAttemptsTotal)
		prometheus.MustRegister(InferenceAttemptDuration)
		prometheus.MustRegister(InferenceCallsTotal)
		prometheus.MustRegister(InferenceMalformedTotal)
		prometheus.MustRegister(InferenceThrottledTotal)
		prometheus.MustRegister(VerificationConfidenceHistogram)
		prometheus.MustRegister(VerificationDowngradesTotal)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAttempt records one provider attempt. outcome is "success" or an error kind.
func ObserveAttempt(task, model, outcome string, latency time.Duration) {
	InferenceAttemptsTotal.WithLabelValues(task, model, outcome).Inc()
	InferenceAttemptDuration.WithLabelValues(task, model).Observe(latency.Seconds())
}

// ObserveCall records the final result of one gateway call.
func ObserveCall(task, result string) {
	InferenceCallsTotal.WithLabelValues(task, result).Inc()
}

// ObserveMalformed counts a malformed response by reason.
func ObserveMalformed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	InferenceMalformedTotal.WithLabelValues(reason).Inc()
}

// ObserveThrottled counts an attempt denied by the outbound limiter.
func ObserveThrottled() {
	InferenceThrottledTotal.Inc()
}

// ObserveVerification records the confidence of a validated verification answer.
func ObserveVerification(confidence float64, downgraded bool) {
	if confidence >= 0 && confidence <= 1 {
		VerificationConfidenceHistogram.Observe(confidence)
	}
	if downgraded {
		VerificationDowngradesTotal.Inc()
	}
}
