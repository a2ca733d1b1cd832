// Package ratelimit limits how often a single user may start downloads.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a user may make another request
type Limiter interface {
	Allow(ctx context.Context, userID int64) bool
}

// Redis is a fixed window counter shared between bot instances. Redis
// errors let the request through.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: int64(limit), window: window, prefix: "ratelimit:"}
}

func (r *Redis) Allow(ctx context.Context, userID int64) bool {
	key := fmt.Sprintf("%s%d", r.prefix, userID)

	// EXPIRE NX keeps the window fixed and heals keys left without a TTL.
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		slog.Warn("Rate limit check failed, allowing request", "user", userID, "error", err)
		return true
	}
	count := incr.Val()

	return count <= r.limit
}

// Memory keeps one token bucket per user in process. Buckets idle for
// longer than the window are dropped on the next sweep.
type Memory struct {
	mu       sync.Mutex
	limiters map[int64]*entry
	every    rate.Limit
	burst    int
	window   time.Duration
	lastScan time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemory allows limit requests per window with bursts of up to limit
func NewMemory(limit int, window time.Duration) *Memory {
	if limit < 1 {
		limit = 1
	}
	return &Memory{
		limiters: make(map[int64]*entry),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
		lastScan: time.Now(),
	}
}

func (m *Memory) Allow(_ context.Context, userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if now.Sub(m.lastScan) > m.window {
		for id, e := range m.limiters {
			if now.Sub(e.lastSeen) > m.window {
				delete(m.limiters, id)
			}
		}
		m.lastScan = now
	}

	e, ok := m.limiters[userID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(m.every, m.burst)}
		m.limiters[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked users
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.limiters)
}
