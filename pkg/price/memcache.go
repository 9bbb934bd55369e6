package price

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memEntry struct {
	value     decimal.Decimal
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache for single-node deployments and tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory price cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return decimal.Zero, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}
