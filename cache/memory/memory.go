// Package memory provides a map-backed etl.Cache
package memory

import (
	"context"
	"sync"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
)

// Cache holds every entry in a map. It is safe for concurrent use.
type Cache struct {
	lock    sync.RWMutex
	entries map[string]etl.CacheEntry
}

// New creates an empty Cache
func New() *Cache {
	return &Cache{entries: make(map[string]etl.CacheEntry)}
}

// Get implements etl.Cache
func (c *Cache) Get(ctx context.Context, key string) (etl.CacheEntry, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return etl.CacheEntry{}, errors.KeyNotFoundError{Key: key}
	}
	return entry, nil
}

// Set implements etl.Cache
func (c *Cache) Set(ctx context.Context, key string, entry etl.CacheEntry) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries[key] = entry
	return nil
}

// Has implements etl.Cache
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.entries[key]
	return ok, nil
}

// Delete implements etl.Cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, key)
	return nil
}

// Clear implements etl.Cache
func (c *Cache) Clear(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries = make(map[string]etl.CacheEntry)
	return nil
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.entries)
}
