package enrich

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"iptvstream/ratingservice/internal/domain"
	"iptvstream/ratingservice/internal/metrics"
	"iptvstream/ratingservice/internal/normalize"
)

const (
	defaultCacheTTL        = 6 * time.Hour
	defaultCacheMaxEntries = 5000
)

// RemoteTier is the shared level behind the in-memory entries. Values carry
// their original store time so the TTL is measured from the first write.
type RemoteTier interface {
	Get(ctx context.Context, key string) (storedAt time.Time, value domain.EnrichmentResult, found bool, err error)
	Set(ctx context.Context, key string, storedAt time.Time, value domain.EnrichmentResult, ttl time.Duration) error
}

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	Remote     RemoteTier
	Logger     *slog.Logger
	Now        func() time.Time
}

type cacheEntry struct {
	storedAt time.Time
	value    domain.EnrichmentResult
}

// Cache holds finished enrichment results keyed by content type, normalized
// title and year. Expiry is checked lazily on Get; when full, Put evicts the
// oldest inserted entry. Reads never reorder entries.
type Cache struct {
	mu       sync.Mutex
	entries  *simplelru.LRU[string, cacheEntry]
	ttl      time.Duration
	capacity int
	remote   RemoteTier
	logger   *slog.Logger
	now      func() time.Time
}

func NewCache(cfg CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	capacity := cfg.MaxEntries
	if capacity <= 0 {
		capacity = defaultCacheMaxEntries
	}
	// NewLRU only fails for a non-positive size.
	entries, _ := simplelru.NewLRU[string, cacheEntry](capacity, nil)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries:  entries,
		ttl:      ttl,
		capacity: capacity,
		remote:   cfg.Remote,
		logger:   logger,
		now:      now,
	}
}

func CacheKey(contentType domain.ContentType, title string, year int) string {
	yearPart := "na"
	if year > 0 {
		yearPart = strconv.Itoa(year)
	}
	return string(contentType) + ":" + normalize.Title(title) + ":" + yearPart
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Capacity() int { return c.capacity }

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Cache) Get(ctx context.Context, contentType domain.ContentType, title string, year int) (domain.EnrichmentResult, bool) {
	key := CacheKey(contentType, title, year)
	now := c.now()

	if value, ok := c.getMemory(key, now); ok {
		metrics.CacheHitsTotal.Inc()
		return value, true
	}

	if c.remote != nil {
		storedAt, value, found, err := c.remote.Get(ctx, key)
		if err != nil {
			c.logger.Warn("remote cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		} else if found && now.Sub(storedAt) <= c.ttl {
			c.storeMemory(key, cacheEntry{storedAt: storedAt, value: value})
			metrics.CacheHitsTotal.Inc()
			return value, true
		}
	}

	metrics.CacheMissesTotal.Inc()
	return domain.EnrichmentResult{}, false
}

func (c *Cache) getMemory(key string, now time.Time) (domain.EnrichmentResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok {
		return domain.EnrichmentResult{}, false
	}
	if now.Sub(entry.storedAt) > c.ttl {
		c.entries.Remove(key)
		metrics.CacheExpiredTotal.Inc()
		return domain.EnrichmentResult{}, false
	}
	return entry.value, true
}

func (c *Cache) Put(ctx context.Context, contentType domain.ContentType, title string, year int, result domain.EnrichmentResult) {
	key := CacheKey(contentType, title, year)
	entry := cacheEntry{storedAt: c.now(), value: result}

	c.storeMemory(key, entry)

	if c.remote != nil {
		if err := c.remote.Set(ctx, key, entry.storedAt, result, c.ttl); err != nil {
			c.logger.Warn("remote cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Cache) storeMemory(key string, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-adding a key refreshes it to the newest position; a new key into a
	// full cache drops the oldest one.
	if evicted := c.entries.Add(key, entry); evicted {
		metrics.CacheEvictionsTotal.Inc()
	}
}
