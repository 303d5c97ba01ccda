package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"iptvstream/ratingservice/internal/enrich"
	"iptvstream/ratingservice/internal/providers/common"
	"iptvstream/ratingservice/internal/providers/omdb"
	"iptvstream/ratingservice/internal/providers/tmdb"
)

// NewLogger builds the process logger. With a log file configured, output
// goes to a size-rotated file instead of stdout. The returned closer must be
// called on shutdown.
func NewLogger(cfg Config) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		out, closer = rotating, rotating
	}
	return newLogger(out, cfg.LogLevel, cfg.LogFormat), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(out io.Writer, levelRaw, formatRaw string) *slog.Logger {
	options := &slog.HandlerOptions{Level: ParseLogLevel(levelRaw)}
	if strings.ToLower(strings.TrimSpace(formatRaw)) == "json" {
		return slog.New(slog.NewJSONHandler(out, options))
	}
	return slog.New(slog.NewTextHandler(out, options))
}

func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BuildEnrichService wires providers and cache from cfg. The returned
// cleanup releases the Redis client when one was opened.
func BuildEnrichService(ctx context.Context, cfg Config, logger *slog.Logger) (*enrich.Service, func()) {
	httpClient := common.NewHTTPClient()

	tmdbClient := tmdb.NewClient(tmdb.Config{
		APIKey:    cfg.TMDBAPIKey,
		BaseURL:   cfg.TMDBBaseURL,
		Language:  cfg.TMDBLanguage,
		Client:    httpClient,
		Limiter:   common.NewLimiter(cfg.TMDBRPS),
		Timeout:   cfg.ProviderTimeout,
		UserAgent: cfg.UserAgent,
	})
	omdbClient := omdb.NewClient(omdb.Config{
		APIKey:    cfg.OMDbAPIKey,
		BaseURL:   cfg.OMDbBaseURL,
		Client:    httpClient,
		Limiter:   common.NewLimiter(cfg.OMDbRPS),
		Timeout:   cfg.ProviderTimeout,
		UserAgent: cfg.UserAgent,
	})
	if !tmdbClient.Enabled() {
		logger.Info("tmdb api key not configured, provider disabled")
	}
	if !omdbClient.Enabled() {
		logger.Info("omdb api key not configured, provider disabled")
	}

	opts := []enrich.ServiceOption{
		enrich.WithLogger(logger),
		enrich.WithMaxBatch(cfg.MaxBatch),
		enrich.WithCacheDisabled(cfg.CacheDisabled),
	}
	cleanup := func() {}
	if !cfg.CacheDisabled {
		cacheCfg := enrich.CacheConfig{
			TTL:        cfg.CacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
			Logger:     logger,
		}
		if redisClient := connectRedis(ctx, cfg.RedisURL, logger); redisClient != nil {
			cacheCfg.Remote = enrich.NewRedisCacheBackend(redisClient)
			cleanup = func() { _ = redisClient.Close() }
		}
		opts = append(opts, enrich.WithCache(enrich.NewCache(cacheCfg)))
	}

	return enrich.NewService(tmdbClient, omdbClient, opts...), cleanup
}

func connectRedis(ctx context.Context, rawURL string, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(rawURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}
