package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ratings",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "provider_requests_total",
		Help:      "Total rating provider lookups by provider name and outcome.",
	}, []string{"provider", "outcome"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ratings",
		Name:      "provider_request_duration_seconds",
		Help:      "Rating provider lookup duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6.5, 10},
	}, []string{"provider"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "cache_hits_total",
		Help:      "Total number of enrichment cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "cache_misses_total",
		Help:      "Total number of enrichment cache misses.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "cache_evictions_total",
		Help:      "Entries dropped because the enrichment cache was full.",
	})

	CacheExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ratings",
		Name:      "cache_expired_total",
		Help:      "Entries removed on read because their TTL elapsed.",
	})

	EnrichBatchItems = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ratings",
		Name:      "enrich_batch_items",
		Help:      "Number of items accepted per enrichment batch.",
		Buckets:   []float64{1, 5, 10, 25, 50, 80, 120},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		CacheExpiredTotal,
		EnrichBatchItems,
	)
}
