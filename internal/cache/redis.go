package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores JSON encoded values with an expiry. Errors are logged and
// treated as misses so a Redis outage degrades to no caching.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis backed cache; keys are stored as prefix+key
func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, false
	}
	if err != nil {
		slog.Warn("Redis cache get failed", "key", key, "error", err)
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		slog.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return value, false
	}
	return value, true
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		slog.Warn("Redis cache set failed", "key", key, "error", err)
	}
}

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
