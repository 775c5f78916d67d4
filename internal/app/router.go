package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/harvest-gateway/internal/adapter/httpserver"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// requestTimeout leaves the gateway room to report its own call timeout.
func requestTimeout(cfg config.Config) time.Duration {
	if cfg.CallTimeout <= 0 {
		return 2 * time.Minute
	}
	return cfg.CallTimeout + 5*time.Second
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	// Browsers call the edge endpoints directly, so preflight is permissive.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"authorization", "x-client-info", "apikey", "content-type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Group(func(wr chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		}
		wr.Use(httpserver.TimeoutMiddleware(requestTimeout(cfg)))
		wr.Post("/v1/verify-component", srv.VerifyComponentHandler())
		wr.Post("/v1/estimate-value", srv.EstimateValueHandler())
		wr.Post("/v1/estimate-waste", srv.EstimateWasteHandler())
	})
	r.Options("/*", httpserver.PreflightOK)

	r.Get("/healthz", httpserver.HealthzHandler)
	r.Get("/readyz", srv.ReadyzHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
