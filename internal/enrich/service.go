// Package enrich attaches provider ratings to locally known titles and
// blends them into a single smart score.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/metrics"
	"iptvstream/ratingservice/internal/normalize"
)

const DefaultMaxBatch = 120

var ErrEmptyBatch = errors.New("items are required")

// Provider is a rating source. Lookup never fails outright: every problem is
// reported through the outcome.
type Provider interface {
	Name() string
	Enabled() bool
	Lookup(ctx context.Context, contentType domain.ContentType, title string, year int) domain.ProviderOutcome
}

type Service struct {
	tmdb          Provider
	omdb          Provider
	cache         *Cache
	cacheDisabled bool
	maxBatch      int
	logger        *slog.Logger
	now           func() time.Time
	tracer        trace.Tracer
	healthMu      sync.Mutex
	health        map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithCache(cache *Cache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func WithMaxBatch(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.maxBatch = limit
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the two rating providers. Either may be nil, which is
// the same as a provider without credentials.
func NewService(tmdb, omdb Provider, opts ...ServiceOption) *Service {
	svc := &Service{
		tmdb:     tmdb,
		omdb:     omdb,
		maxBatch: DefaultMaxBatch,
		logger:   slog.Default(),
		now:      time.Now,
		tracer:   otel.Tracer("iptvstream/ratingservice/enrich"),
		health:   make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.cache == nil && !svc.cacheDisabled {
		svc.cache = NewCache(CacheConfig{Logger: svc.logger, Now: svc.now})
	}
	return svc
}

func (s *Service) MaxBatch() int {
	return s.maxBatch
}

func (s *Service) ProviderStatus() domain.ProviderStatus {
	return domain.ProviderStatus{
		TMDBEnabled: providerEnabled(s.tmdb),
		OMDbEnabled: providerEnabled(s.omdb),
	}
}

func providerEnabled(p Provider) bool {
	return p != nil && p.Enabled()
}

// Enrich scores every item of the batch. Items beyond the batch limit are
// dropped before any provider call; items without an id are skipped and a
// repeated id keeps its first occurrence. One item's trouble never affects
// another.
func (s *Service) Enrich(ctx context.Context, contentType domain.ContentType, items []domain.EnrichmentItem) (domain.EnrichResponse, error) {
	if !contentType.Valid() {
		return domain.EnrichResponse{}, fmt.Errorf("%w: %q", domain.ErrInvalidContentType, contentType)
	}
	if len(items) > s.maxBatch {
		items = items[:s.maxBatch]
	}

	accepted := make([]domain.EnrichmentItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		accepted = append(accepted, item)
	}
	if len(accepted) == 0 {
		return domain.EnrichResponse{}, ErrEmptyBatch
	}
	metrics.EnrichBatchItems.Observe(float64(len(accepted)))

	results := make([]domain.EnrichmentResult, len(accepted))
	var g errgroup.Group
	for i, item := range accepted {
		g.Go(func() error {
			results[i] = s.enrichItem(ctx, contentType, item)
			return nil
		})
	}
	_ = g.Wait()

	response := domain.EnrichResponse{
		ProviderStatus: s.ProviderStatus(),
		Items:          make(map[string]domain.EnrichmentResult, len(accepted)),
	}
	for i, item := range accepted {
		response.Items[item.ID] = results[i]
	}
	return response, nil
}

func (s *Service) enrichItem(ctx context.Context, contentType domain.ContentType, item domain.EnrichmentItem) domain.EnrichmentResult {
	ctx, span := s.tracer.Start(ctx, "enrich.item", trace.WithAttributes(
		attribute.String("enrich.content_type", string(contentType)),
		attribute.String("enrich.item_id", item.ID),
	))
	defer span.End()

	title := strings.TrimSpace(item.Title)
	year := normalize.Year(item.Year)
	if title == "" {
		// No stable cache key; score from local data only.
		span.SetAttributes(attribute.Bool("enrich.local_only", true))
		return BuildResult(contentType, item, nil, nil, s.now())
	}

	useCache := s.cache != nil && !s.cacheDisabled
	if useCache {
		if cached, ok := s.cache.Get(ctx, contentType, title, year); ok {
			span.SetAttributes(attribute.Bool("enrich.cache_hit", true))
			return cached
		}
	}
	span.SetAttributes(attribute.Bool("enrich.cache_hit", false))

	var tmdbOutcome, omdbOutcome domain.ProviderOutcome
	var g errgroup.Group
	g.Go(func() error {
		tmdbOutcome = s.lookup(ctx, s.tmdb, contentType, title, year)
		return nil
	})
	g.Go(func() error {
		omdbOutcome = s.lookup(ctx, s.omdb, contentType, title, year)
		return nil
	})
	_ = g.Wait()

	span.SetAttributes(
		attribute.String("enrich.tmdb_outcome", string(tmdbOutcome.Status)),
		attribute.String("enrich.omdb_outcome", string(omdbOutcome.Status)),
	)
	if tmdbOutcome.Status == domain.OutcomeFailed && omdbOutcome.Status == domain.OutcomeFailed {
		span.SetStatus(codes.Error, "all providers failed")
	}

	result := BuildResult(contentType, item, tmdbOutcome.Record(), omdbOutcome.Record(), s.now())
	// A cancelled caller turns healthy lookups into failures; that result is
	// still returned but must not be served to later callers.
	if ctx.Err() != nil {
		span.SetAttributes(attribute.Bool("enrich.cache_skipped", true))
		return result
	}
	if useCache {
		s.cache.Put(ctx, contentType, title, year, result)
	}
	return result
}

func (s *Service) lookup(ctx context.Context, provider Provider, contentType domain.ContentType, title string, year int) domain.ProviderOutcome {
	if !providerEnabled(provider) {
		return domain.NotFound("provider disabled")
	}

	started := time.Now()
	outcome := provider.Lookup(ctx, contentType, title, year)
	latency := time.Since(started)
	s.recordProviderResult(provider.Name(), outcome, latency, s.now())

	if outcome.Status == domain.OutcomeFailed {
		s.logger.Warn("rating provider lookup failed",
			slog.String("provider", provider.Name()),
			slog.String("contentType", string(contentType)),
			slog.String("title", title),
			slog.Int("year", year),
			slog.Bool("timeout", outcome.Timeout),
			slog.String("reason", outcome.Reason),
			slog.Duration("elapsed", latency),
		)
	}
	return outcome
}
