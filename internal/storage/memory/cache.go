package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Dzaakk/playtime-gateway/internal/playtime"
)

type cacheEntry struct {
	value  playtime.Response
	expiry time.Time
}

// MemoryCache is the in-process playtime.Cache.
type MemoryCache struct {
	mu         sync.RWMutex
	m          map[string]cacheEntry
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	once       sync.Once
}

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = playtime.DefaultCacheTTL
	}
	c := &MemoryCache{
		m:          map[string]cacheEntry{},
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()

	return c
}

func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, e := range c.m {
				if !e.expiry.After(now) {
					delete(c.m, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (playtime.Response, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok || !e.expiry.After(now) {
		return playtime.Response{}, false, nil
	}
	return clone(e.value), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value playtime.Response, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry{value: clone(value), expiry: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// clone copies the games slice so callers cannot mutate a cached entry.
func clone(r playtime.Response) playtime.Response {
	if r.Games != nil {
		games := make([]playtime.Game, len(r.Games))
		copy(games, r.Games)
		r.Games = games
	}
	return r
}

var _ playtime.Cache = (*MemoryCache)(nil)
