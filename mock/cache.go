package mock

import (
	"context"

	"github.com/Webictbyleo/capsule"
)

var _ capsule.AssetCache = (*Cache)(nil)

// Cache is a mock implementation of capsule.AssetCache.
type Cache struct {
	LookupFn func(ctx context.Context, canonicalURL string) (string, error)
	CommitFn func(ctx context.Context, canonicalURL, localPath string) (string, error)
	LenFn    func(ctx context.Context) (int, error)
	LoadFn   func(ctx context.Context) error
	SaveFn   func(ctx context.Context) error
}

func (c *Cache) Lookup(ctx context.Context, canonicalURL string) (string, error) {
	return c.LookupFn(ctx, canonicalURL)
}

func (c *Cache) Commit(ctx context.Context, canonicalURL, localPath string) (string, error) {
	return c.CommitFn(ctx, canonicalURL, localPath)
}

func (c *Cache) Len(ctx context.Context) (int, error) {
	return c.LenFn(ctx)
}

func (c *Cache) Load(ctx context.Context) error {
	return c.LoadFn(ctx)
}

func (c *Cache) Save(ctx context.Context) error {
	return c.SaveFn(ctx)
}
