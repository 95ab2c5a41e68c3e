// Package jsonfile provides the global-mode asset cache persisted as a JSON
// mapping file alongside the shared asset directory. The file is read once
// at the start of a capture and rewritten with a full load-modify-save
// cycle; concurrent captures against the same file must not run
// simultaneously.
package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/Webictbyleo/capsule"
)

// DefaultFilename is the cache file name inside the global asset directory.
const DefaultFilename = "asset_cache.json"

// Ensure Cache implements capsule.AssetCache at compile time.
var _ capsule.AssetCache = (*Cache)(nil)

// Cache is a JSON-file-backed canonical URL to local path mapping.
// It is safe for concurrent use by multiple goroutines within one process.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]string

	// defensiveSave persists the file after every new commit so prior
	// downloads survive an interrupted capture. Enabled by default.
	defensiveSave bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefensiveSave controls whether every new commit rewrites the cache
// file immediately. Defaults to true.
func WithDefensiveSave(enabled bool) Option {
	return func(c *Cache) {
		c.defensiveSave = enabled
	}
}

// NewCache creates a Cache persisted at path. Call Load before use to pick
// up entries from previous captures.
func NewCache(path string, opts ...Option) *Cache {
	c := &Cache{
		path:          path,
		entries:       make(map[string]string),
		defensiveSave: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
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
	if existing, ok := c.entries[canonicalURL]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.entries[canonicalURL] = localPath
	c.mu.Unlock()

	if c.defensiveSave {
		if err := c.Save(ctx); err != nil {
			return "", err
		}
	}
	return localPath, nil
}

// Len returns the number of committed entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// Entries returns all committed entries, used by cache inspection tooling.
func (c *Cache) Entries(ctx context.Context) ([]capsule.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]capsule.CacheEntry, 0, len(c.entries))
	for url, path := range c.entries {
		entries = append(entries, capsule.CacheEntry{CanonicalURL: url, LocalPath: path})
	}
	return entries, nil
}

// Load reads the serialized mapping file, replacing in-memory state.
// A missing file is not an error; the cache starts empty.
func (c *Cache) Load(ctx context.Context) error {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "read cache file: %v", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return capsule.Errorf(capsule.EINVALID, "parse cache file %s: %v", c.path, err)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Save rewrites the serialized mapping file. The write goes through a
// temporary file and rename so an interrupted save never truncates the
// previous cache.
func (c *Cache) Save(ctx context.Context) error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "encode cache: %v", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "create cache directory: %v", err)
	}

	tmp, err := os.CreateTemp(dir, ".asset_cache-*")
	if err != nil {
		return capsule.Errorf(capsule.EINTERNAL, "create temp cache file: %v", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return capsule.Errorf(capsule.EINTERNAL, "write cache file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return capsule.Errorf(capsule.EINTERNAL, "close cache file: %v", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return capsule.Errorf(capsule.EINTERNAL, "replace cache file: %v", err)
	}
	return nil
}
