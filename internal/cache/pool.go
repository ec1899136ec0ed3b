package cache

import (
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"caseopener-rest-api/internal/model"
)

// PoolCache keeps recently resolved item pools keyed by rarity set.
// Callers must Purge after any catalog write.
type PoolCache struct {
	lru *expirable.LRU[string, []model.Item]
}

// NewPoolCache creates a pool cache holding at most size pools for ttl.
func NewPoolCache(size int, ttl time.Duration) *PoolCache {
	if size <= 0 {
		size = 64
	}
	return &PoolCache{
		lru: expirable.NewLRU[string, []model.Item](size, nil, ttl),
	}
}

// PoolKey builds an order-independent key for a rarity set.
func PoolKey(rarities []string) string {
	if len(rarities) == 0 {
		return "*"
	}
	sorted := slices.Clone(rarities)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), ",")
}

// Get returns a copy of the cached pool.
func (c *PoolCache) Get(key string) ([]model.Item, bool) {
	pool, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return slices.Clone(pool), true
}

// Add stores a copy of pool. Empty pools are not cached.
func (c *PoolCache) Add(key string, pool []model.Item) {
	if len(pool) == 0 {
		return
	}
	c.lru.Add(key, slices.Clone(pool))
}

// Purge drops every cached pool.
func (c *PoolCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached pools.
func (c *PoolCache) Len() int {
	return c.lru.Len()
}
