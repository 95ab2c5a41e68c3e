package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Webictbyleo/capsule"
)

// Ensure Cache implements capsule.AssetCache at compile time.
var _ capsule.AssetCache = (*Cache)(nil)

// Cache is a SQLite-backed asset cache. Commits are write-through; Load and
// Save are no-ops because the database is the persisted form.
type Cache struct {
	db *DB
}

// NewCache creates a Cache on an open database.
func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// Lookup returns the local path committed for a canonical URL.
// Returns ENOTFOUND if no entry exists.
func (c *Cache) Lookup(ctx context.Context, canonicalURL string) (string, error) {
	var path string
	err := c.db.QueryRowContext(ctx,
		`SELECT local_path FROM assets WHERE canonical_url = ?`,
		canonicalURL,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", capsule.Errorf(capsule.ENOTFOUND, "no cache entry for %s", canonicalURL)
	} else if err != nil {
		return "", capsule.Errorf(capsule.EINTERNAL, "lookup cache entry: %v", err)
	}
	return path, nil
}

// Commit records a mapping. Committing an already-present URL is a no-op
// and returns the previously committed path.
func (c *Cache) Commit(ctx context.Context, canonicalURL, localPath string) (string, error) {
	if canonicalURL == "" {
		return "", capsule.Errorf(capsule.EINVALID, "canonical URL required")
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO assets (canonical_url, local_path, committed_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (canonical_url) DO NOTHING`,
		canonicalURL, localPath, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", capsule.Errorf(capsule.EINTERNAL, "commit cache entry: %v", err)
	}

	// The insert may have been ignored; return whatever is committed.
	return c.Lookup(ctx, canonicalURL)
}

// Len returns the number of committed entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, capsule.Errorf(capsule.EINTERNAL, "count cache entries: %v", err)
	}
	return n, nil
}

// Entries returns all committed entries, used by cache inspection tooling.
func (c *Cache) Entries(ctx context.Context) ([]capsule.CacheEntry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT canonical_url, local_path FROM assets ORDER BY canonical_url`)
	if err != nil {
		return nil, capsule.Errorf(capsule.EINTERNAL, "list cache entries: %v", err)
	}
	defer rows.Close()

	var entries []capsule.CacheEntry
	for rows.Next() {
		var e capsule.CacheEntry
		if err := rows.Scan(&e.CanonicalURL, &e.LocalPath); err != nil {
			return nil, capsule.Errorf(capsule.EINTERNAL, "scan cache entry: %v", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, capsule.Errorf(capsule.EINTERNAL, "list cache entries: %v", err)
	}
	return entries, nil
}

// Load is a no-op; reads go to the database directly.
func (c *Cache) Load(ctx context.Context) error { return nil }

// Save is a no-op; commits are write-through.
func (c *Cache) Save(ctx context.Context) error { return nil }
