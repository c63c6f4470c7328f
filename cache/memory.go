package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryCache implements Cache using ttlcache.
type MemoryCache struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemoryCache creates a new in-memory cache with automatic cleanup.
//
//nolint:ireturn
func NewMemoryCache() Cache {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryCache{
		cache: cache,
	}
}

// Get implements Cache.Get.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}

	return item.Value(), true
}

// Set implements Cache.Set.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)

	return nil
}

// Delete removes an entry from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)

	return nil
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	c.cache.Stop()

	return nil
}
