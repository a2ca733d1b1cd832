// Package cache provides TTL caches for search results and a blacklist of
// sources that recently failed.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores values by key with a fixed time to live
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
}

// Memory is a bounded in-process LRU with per-entry expiry
type Memory[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewMemory creates a cache holding at most size entries for ttl each
func NewMemory[V any](size int, ttl time.Duration) *Memory[V] {
	if size <= 0 {
		size = 256
	}
	return &Memory[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool) {
	return m.lru.Get(key)
}

func (m *Memory[V]) Set(_ context.Context, key string, value V) {
	m.lru.Add(key, value)
}

// Len returns the number of live entries
func (m *Memory[V]) Len() int {
	return m.lru.Len()
}
