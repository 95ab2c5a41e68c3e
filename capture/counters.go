package capture

import "github.com/Webictbyleo/capsule"

// Counters tallies per-attempt fetch failures by kind. They are reset at
// the start of each attempt and read at verification; any nonzero total
// fails the attempt. All updates happen on the serializing consumer, so no
// locking is needed.
type Counters struct {
	Forbidden   int // HTTP 403
	NotFound    int // HTTP 404
	RateLimited int // HTTP 429
	Unavailable int // network errors, timeouts, other non-2xx statuses
	Mismatch    int // validator rejections
	Internal    int // disk write and other internal failures
	Other       int
}

// Record classifies err by its error code and increments the matching
// counter.
func (c *Counters) Record(err error) {
	switch capsule.ErrorCode(err) {
	case capsule.EFORBIDDEN:
		c.Forbidden++
	case capsule.ENOTFOUND:
		c.NotFound++
	case capsule.ERATELIMITED:
		c.RateLimited++
	case capsule.EUNAVAILABLE:
		c.Unavailable++
	case capsule.EMISMATCH:
		c.Mismatch++
	case capsule.EINTERNAL:
		c.Internal++
	default:
		c.Other++
	}
}

// Total returns the number of recorded failures.
func (c *Counters) Total() int {
	return c.Forbidden + c.NotFound + c.RateLimited + c.Unavailable +
		c.Mismatch + c.Internal + c.Other
}

// Reset zeroes all counters.
func (c *Counters) Reset() {
	*c = Counters{}
}
