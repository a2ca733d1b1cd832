package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[[]entry](10, time.Minute)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "q", []entry{{Title: "a", URL: "u"}})
	got, ok := c.Get(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, []entry{{Title: "a", URL: "u"}}, got)
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](2, time.Minute)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	c.Set(ctx, "c", 3)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int](2, 20*time.Millisecond)

	c.Set(ctx, "a", 1)
	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisGetSet(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedis[[]entry](client, "search:", time.Hour)

	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)

	c.Set(ctx, "q", []entry{{Title: "a", URL: "u"}})
	assert.True(t, mr.Exists("search:q"))

	got, ok := c.Get(ctx, "q")
	require.True(t, ok)
	assert.Equal(t, []entry{{Title: "a", URL: "u"}}, got)

	mr.FastForward(2 * time.Hour)
	_, ok = c.Get(ctx, "q")
	assert.False(t, ok)
}

func TestRedisCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	require.NoError(t, mr.Set("search:q", "{not json"))

	c := NewRedis[[]entry](client, "search:", time.Hour)
	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)
}

func TestRedisOutageIsMiss(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedis[int](client, "", time.Hour)
	mr.Close()

	c.Set(ctx, "a", 1)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	require.NoError(t, err)
	defer client.Close()

	_, err = Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestBlacklist(t *testing.T) {
	b := NewBlacklist(2, time.Minute)

	assert.False(t, b.Contains("u1"))
	b.Add("u1")
	assert.True(t, b.Contains("u1"))

	b.Add("u2")
	b.Add("u3")
	assert.False(t, b.Contains("u1"))
	assert.True(t, b.Contains("u3"))
	assert.Equal(t, 2, b.Len())
}

func TestBlacklistExpires(t *testing.T) {
	b := NewBlacklist(10, 20*time.Millisecond)
	b.Add("u1")
	time.Sleep(50 * time.Millisecond)
	assert.False(t, b.Contains("u1"))
}
