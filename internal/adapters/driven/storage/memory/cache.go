package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docindex/internal/core/domain"
	"github.com/custodia-labs/docindex/internal/core/ports/driven"
)

// Ensure TransformCache implements the interface.
var _ driven.TransformCache = (*TransformCache)(nil)

// TransformCache is an in-memory implementation of driven.TransformCache.
type TransformCache struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewTransformCache creates an empty cache.
func NewTransformCache() *TransformCache {
	return &TransformCache{entries: make(map[string]domain.CacheEntry)}
}

// GetCached returns the value stored under key.
func (c *TransformCache) GetCached(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.Value...), true, nil
}

// PutCached stores entry, replacing any previous value for its key.
func (c *TransformCache) PutCached(_ context.Context, entry domain.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.Value = append([]byte(nil), entry.Value...)
	c.entries[entry.Key] = entry
	return nil
}

// Invalidate drops entries of transform whose version is not keepVersion.
func (c *TransformCache) Invalidate(_ context.Context, transform, keepVersion string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, entry := range c.entries {
		if entry.Transform == transform && entry.Version != keepVersion {
			delete(c.entries, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of cached entries.
func (c *TransformCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
