package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_Basic(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	mw := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(204) }))
	mw.ServeHTTP(rec, r)
	if rec.Result().StatusCode != 204 {
		t.Fatalf("want 204")
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/x", http.MethodGet, "No Content")), 1.0)
}

func TestHTTPMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "OK"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/items/{id}", http.MethodGet, "OK"))
	assert.Equal(t, before+1, after)
}

func TestInferenceMetricsHelpers(t *testing.T) {
	InitMetrics()
	InitMetrics()

	before := testutil.ToFloat64(InferenceAttemptsTotal.WithLabelValues("verify_component", "m", "QUOTA_EXCEEDED"))
	ObserveAttempt("verify_component", "m", "QUOTA_EXCEEDED", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(InferenceAttemptsTotal.WithLabelValues("verify_component", "m", "QUOTA_EXCEEDED")))

	mb := testutil.ToFloat64(InferenceMalformedTotal.WithLabelValues("unknown"))
	ObserveMalformed("")
	assert.Equal(t, mb+1, testutil.ToFloat64(InferenceMalformedTotal.WithLabelValues("unknown")))

	db := testutil.ToFloat64(VerificationDowngradesTotal)
	ObserveVerification(0.8, true)
	ObserveVerification(2, false)
	assert.Equal(t, db+1, testutil.ToFloat64(VerificationDowngradesTotal))

	tb := testutil.ToFloat64(InferenceThrottledTotal)
	ObserveThrottled()
	assert.Equal(t, tb+1, testutil.ToFloat64(InferenceThrottledTotal))

	ObserveCall("estimate_waste", "success")
	assert.GreaterOrEqual(t, testutil.ToFloat64(InferenceCallsTotal.WithLabelValues("estimate_waste", "success")), 1.0)
}
