package capsule

import "context"

// CacheEntry maps a canonical URL to the relative local path holding its
// bytes. Entries are created on first successful fetch and never mutated.
type CacheEntry struct {
	CanonicalURL string `json:"canonicalUrl"`
	LocalPath    string `json:"localPath"`
}

// AssetCache is the sole owner of the canonical URL to local path relation.
// Fetch workers propose entries; the capture controller commits them through
// a single serializing point, so implementations only need to be safe for
// the controller's access pattern, though all provided implementations are
// safe for concurrent use.
type AssetCache interface {
	// Lookup returns the local path committed for a canonical URL.
	// Returns ENOTFOUND if no entry exists.
	Lookup(ctx context.Context, canonicalURL string) (string, error)

	// Commit records a canonical URL to local path mapping. Committing a URL
	// that already has an entry is a no-op; the previously committed path is
	// returned in either case.
	Commit(ctx context.Context, canonicalURL, localPath string) (string, error)

	// Len returns the number of committed entries.
	Len(ctx context.Context) (int, error)

	// Load reads the persisted form of the cache, replacing in-memory state.
	// Ephemeral implementations treat this as a no-op.
	Load(ctx context.Context) error

	// Save writes the persisted form of the cache.
	// Ephemeral implementations discard.
	Save(ctx context.Context) error
}
