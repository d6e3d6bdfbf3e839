package location

import (
	"context"
	"errors"
	"log"
	"sync"

	"blocosrj/internal/keys"
	"blocosrj/internal/models"
	"blocosrj/internal/storage"
)

// Cache maps normalized query keys to resolved places. Entries never expire.
type Cache interface {
	Get(key string) (models.Place, bool)
	Set(key string, place models.Place)
	// Persist writes the whole cache to durable storage.
	Persist(ctx context.Context) error
}

// StoreCache is a Cache kept in memory and persisted as one snapshot in a Store.
type StoreCache struct {
	mu      sync.RWMutex
	store   storage.Store
	entries map[string]models.Place
}

// LoadStoreCache restores the snapshot saved under keys.GeocodeSnapshot. A missing
// or unreadable snapshot starts an empty cache.
func LoadStoreCache(ctx context.Context, store storage.Store) *StoreCache {
	c := &StoreCache{store: store, entries: make(map[string]models.Place)}
	var saved map[string]models.Place
	err := storage.GetJSON(ctx, store, keys.GeocodeSnapshot, &saved)
	switch {
	case err == nil:
		for k, v := range saved {
			c.entries[k] = v
		}
		log.Printf("Restored %d geocode cache entries", len(c.entries))
	case errors.Is(err, storage.ErrNotFound):
	default:
		log.Printf("Starting with an empty geocode cache: %v", err)
	}
	return c
}

func (c *StoreCache) Get(key string) (models.Place, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

func (c *StoreCache) Set(key string, place models.Place) {
	c.mu.Lock()
	c.entries[key] = place
	c.mu.Unlock()
}

func (c *StoreCache) Persist(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return storage.SetJSON(ctx, c.store, keys.GeocodeSnapshot, c.entries)
}

func (c *StoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
