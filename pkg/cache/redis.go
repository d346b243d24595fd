package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcclellann/fredDebt/pkg/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fredDebt:simulation:"

// RedisCache stores JSON-encoded results in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr. The connection is verified with a PING.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &RedisCache{client: rdb, ttl: ttl}, nil
}

// Get returns a cached result. Misses and decode failures both report false.
func (r *RedisCache) Get(ctx context.Context, key string) (*models.AmortizationResult, bool) {
	val, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	var result models.AmortizationResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (r *RedisCache) Set(ctx context.Context, key string, result *models.AmortizationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode simulation: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache simulation %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to evict simulation %s: %w", key, err)
	}
	return nil
}

// Close releases the client's connections.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
