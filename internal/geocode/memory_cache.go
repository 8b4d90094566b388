package geocode

import (
	"context"
	"sync"
)

// MemoryCache is the process-local Cache used when no database is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, keyword string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[keyword]
	return e, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, keyword string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[keyword] = entry
	return nil
}
