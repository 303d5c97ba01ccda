package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"iptvstream/ratingservice/internal/domain"
)

const redisCachePrefix = "ratings:enrich:"

// RedisCacheBackend shares enrichment results between service replicas.
// Values are JSON with the original store time so every replica applies the
// same TTL.
type RedisCacheBackend struct {
	client *redis.Client
}

var _ RemoteTier = (*RedisCacheBackend)(nil)

type redisCachePayload struct {
	StoredAt time.Time               `json:"storedAt"`
	Value    domain.EnrichmentResult `json:"value"`
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (r *RedisCacheBackend) Get(ctx context.Context, key string) (time.Time, domain.EnrichmentResult, bool, error) {
	data, err := r.client.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, domain.EnrichmentResult{}, false, nil
		}
		return time.Time{}, domain.EnrichmentResult{}, false, err
	}
	var payload redisCachePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return time.Time{}, domain.EnrichmentResult{}, false, err
	}
	return payload.StoredAt, payload.Value, true, nil
}

func (r *RedisCacheBackend) Set(ctx context.Context, key string, storedAt time.Time, value domain.EnrichmentResult, ttl time.Duration) error {
	data, err := json.Marshal(redisCachePayload{StoredAt: storedAt, Value: value})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisCachePrefix+key, data, ttl).Err()
}

func (r *RedisCacheBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
