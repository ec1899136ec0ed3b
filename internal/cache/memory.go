package cache

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) expired(at time.Time) bool {
	return at.After(e.expiresAt)
}

// MemoryCache is an in-process Cache with a background janitor.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a cache that sweeps expired entries every interval.
// A non-positive interval defaults to one minute.
func NewMemoryCache(interval time.Duration) *MemoryCache {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &MemoryCache{
		entries: make(map[string]*cacheEntry),
		stop:    make(chan struct{}),
	}
	go c.janitor(interval)
	return c
}

// Get retrieves a copy of the value stored under key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a copy of value until ttl elapses.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		value:     append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor. Safe to call more than once.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
