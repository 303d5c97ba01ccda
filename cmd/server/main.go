package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "iptvstream/ratingservice/internal/api/http"
	"iptvstream/ratingservice/internal/app"
	"iptvstream/ratingservice/internal/metrics"
	"iptvstream/ratingservice/internal/telemetry"
)

const serviceName = "rating-enrich"

var version = "dev"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger, logCloser := app.NewLogger(cfg)
	defer logCloser.Close()
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Options{
		ServiceName: serviceName,
		Version:     version,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(flushCtx)
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Bool("logToFile", strings.TrimSpace(cfg.LogFile) != ""),
		slog.Duration("providerTimeout", cfg.ProviderTimeout),
		slog.Duration("cacheTTL", cfg.CacheTTL),
		slog.Int("cacheMaxEntries", cfg.CacheMaxEntries),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Int("maxBatch", cfg.MaxBatch),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasOMDbKey", cfg.OMDbAPIKey != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Float64("httpRateLimitRPS", cfg.HTTPRateLimitRPS),
		slog.Bool("tracing", strings.TrimSpace(cfg.OTLPEndpoint) != ""),
		slog.Float64("traceSampleRatio", cfg.TraceSampleRatio),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enrichService, cleanup := app.BuildEnrichService(rootCtx, cfg, logger)
	defer cleanup()

	handler := apihttp.NewServer(enrichService,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst),
		apihttp.WithArtworkHosts(cfg.ArtworkHosts),
		apihttp.WithUserAgent(cfg.UserAgent),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A full batch waits on the slowest provider call.
		WriteTimeout: cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("rating enrich service started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("rating enrich service stopped")
}
