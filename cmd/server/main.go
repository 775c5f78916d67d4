// Command server starts the inference gateway's edge HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/harvest-gateway/internal/adapter/httpserver"
	"github.com/fairyhunter13/harvest-gateway/internal/adapter/observability"
	"github.com/fairyhunter13/harvest-gateway/internal/app"
	"github.com/fairyhunter13/harvest-gateway/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Redis is optional: it backs the shared outbound throttle and /readyz.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close redis client", slog.Any("error", err))
			}
		}()
	}
	throttle := rdb
	if !cfg.RedisEnabled() {
		throttle = nil
	}

	comps, err := app.BuildGateway(cfg, throttle)
	if err != nil {
		slog.Error("gateway setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	app.WarnMissingModels(startupCtx, comps.Catalog, comps.Chain)
	cancelStartup()

	var redisCheck, providerCheck func(context.Context) error
	if rdb != nil {
		redisCheck, providerCheck = app.BuildReadinessChecks(rdb, comps.Catalog)
	} else {
		_, providerCheck = app.BuildReadinessChecks(nil, comps.Catalog)
	}

	srv := httpserver.NewServer(cfg, comps.Gateway, redisCheck, providerCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
