package capture

import (
	"sync"

	"github.com/Webictbyleo/capsule"
	"github.com/bits-and-blooms/bloom/v3"
)

// Frontier sizing. A single document rarely references more than a few
// hundred assets; the filter is sized generously so the false positive
// rate stays negligible in practice.
const (
	frontierExpectedURLs      = 8192
	frontierFalsePositiveRate = 0.0001
)

// Frontier queues asset references awaiting fetch, deduplicating by
// canonical URL with a Bloom filter so each URL is fetched at most once
// per attempt. It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	mu    sync.Mutex
	seen  *bloom.BloomFilter
	queue []capsule.AssetReference
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		seen: bloom.NewWithEstimates(frontierExpectedURLs, frontierFalsePositiveRate),
	}
}

// Push queues a reference for fetching. Returns false if a reference with
// the same canonical URL has already been queued.
func (f *Frontier) Push(ref capsule.AssetReference) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.TestString(ref.Canonical) {
		return false
	}
	f.seen.AddString(ref.Canonical)
	f.queue = append(f.queue, ref)
	return true
}

// Drain removes and returns all currently queued references in the order
// they were pushed.
func (f *Frontier) Drain() []capsule.AssetReference {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch := f.queue
	f.queue = nil
	return batch
}

// Len returns the number of queued references.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Seen returns true if a reference with the canonical URL has been queued.
func (f *Frontier) Seen(canonicalURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.TestString(canonicalURL)
}
