package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Blacklist remembers source URLs that failed extraction so they are skipped
// for a while. It is bounded; the oldest entries are evicted first.
type Blacklist struct {
	lru *expirable.LRU[string, time.Time]
}

func NewBlacklist(size int, ttl time.Duration) *Blacklist {
	if size <= 0 {
		size = 1000
	}
	return &Blacklist{lru: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

func (b *Blacklist) Add(sourceURL string) {
	b.lru.Add(sourceURL, time.Now())
}

// Contains reports whether sourceURL was added and has not expired yet
func (b *Blacklist) Contains(sourceURL string) bool {
	_, ok := b.lru.Peek(sourceURL)
	return ok
}

func (b *Blacklist) Len() int {
	return b.lru.Len()
}
