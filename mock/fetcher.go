// Package mock provides mock implementations of capsule services for
// testing.
package mock

import (
	"context"

	"github.com/Webictbyleo/capsule"
)

var _ capsule.AssetFetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of capsule.AssetFetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*capsule.FetchResponse, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*capsule.FetchResponse, error) {
	return f.FetchFn(ctx, url)
}
