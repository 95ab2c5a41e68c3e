package capture

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DomainLimiter paces fetches per host so a capture never hammers a single
// origin. Hosts are independent of each other; requests within one host are
// spaced by the configured rate with no bursting.
type DomainLimiter struct {
	limit rate.Limit

	mu    sync.RWMutex
	hosts map[string]*rate.Limiter
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per second
// per host.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limit: rate.Limit(rps),
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the host's limiter releases a token, or until ctx is
// canceled.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	return d.limiterFor(host).Wait(ctx)
}

func (d *DomainLimiter) limiterFor(host string) *rate.Limiter {
	d.mu.RLock()
	l, ok := d.hosts[host]
	d.mu.RUnlock()
	if ok {
		return l
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.hosts[host]; ok {
		return l
	}
	l = rate.NewLimiter(d.limit, 1)
	d.hosts[host] = l
	return l
}
