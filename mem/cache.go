// Package mem provides an ephemeral in-process asset cache scoped to a
// single capture. Nothing survives the process: Load is a no-op and Save
// discards.
package mem

import (
	"context"
	"sync"

	"github.com/Webictbyleo/capsule"
)

// Ensure Cache implements capsule.AssetCache at compile time.
var _ capsule.AssetCache = (*Cache)(nil)

// Cache is an in-memory canonical URL to local path mapping.
// It is safe for concurrent use by multiple goroutines.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Lookup returns the local path committed for a canonical URL.
// Returns ENOTFOUND if no entry exists.
func (c *Cache) Lookup(ctx context.Context, canonicalURL string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path, ok := c.entries[canonicalURL]
	if !ok {
		return "", capsule.Errorf(capsule.ENOTFOUND, "no cache entry for %s", canonicalURL)
	}
	return path, nil
}

// Commit records a mapping. Committing an already-present URL is a no-op
// and returns the previously committed path.
func (c *Cache) Commit(ctx context.Context, canonicalURL, localPath string) (string, error) {
	if canonicalURL == "" {
		return "", capsule.Errorf(capsule.EINVALID, "canonical URL required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[canonicalURL]; ok {
		return existing, nil
	}
	c.entries[canonicalURL] = localPath
	return localPath, nil
}

// Len returns the number of committed entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Load is a no-op for the ephemeral cache.
func (c *Cache) Load(ctx context.Context) error { return nil }

// Save discards for the ephemeral cache.
func (c *Cache) Save(ctx context.Context) error { return nil }
