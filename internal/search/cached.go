package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/jaki95/soundcloud-audio-bot/internal/cache"
	"github.com/jaki95/soundcloud-audio-bot/internal/domain"
)

// Cached serves repeated queries from a cache owned by the caller. Only
// non-empty successful results are stored.
type Cached struct {
	next  Provider
	cache cache.Cache[[]domain.Track]
}

func NewCached(next Provider, c cache.Cache[[]domain.Track]) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Search(ctx context.Context, query string) ([]domain.Track, error) {
	key := Normalize(query)
	if key == "" {
		return nil, ErrInvalidQuery
	}

	if tracks, ok := c.cache.Get(ctx, key); ok && len(tracks) > 0 {
		return tracks, nil
	}

	tracks, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		c.cache.Set(ctx, key, tracks)
	}
	return tracks, nil
}

// Limited bounds how many searches run at once
type Limited struct {
	next Provider
	sem  *semaphore.Weighted
}

func NewLimited(next Provider, maxConcurrent int) *Limited {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limited{next: next, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (l *Limited) Search(ctx context.Context, query string) ([]domain.Track, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for search slot: %w", err)
	}
	defer l.sem.Release(1)
	return l.next.Search(ctx, query)
}
