package cache

import "sync/atomic"

// Reason tells why an entry left the cache.
type Reason uint8

const (
	// ReasonExpired means the entry's timeout elapsed.
	ReasonExpired Reason = iota + 1
	// ReasonInvalidated means the entry was removed by Invalidate or Clear.
	ReasonInvalidated
	// ReasonNotStored means the entry resolved with a zero timeout.
	ReasonNotStored
)

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonInvalidated:
		return "invalidated"
	case ReasonNotStored:
		return "not_stored"
	}
	return "unknown"
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Computations uint64 `json:"computations"`
	Failures     uint64 `json:"failures"`
	Evictions    uint64 `json:"evictions"`
	Entries      int    `json:"entries"`
}

type counters struct {
	hits         atomic.Uint64
	misses       atomic.Uint64
	computations atomic.Uint64
	failures     atomic.Uint64
	evictions    atomic.Uint64
}

// Stats returns the cache counters. Hits include callers that joined an
// in-flight computation.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:         c.stats.hits.Load(),
		Misses:       c.stats.misses.Load(),
		Computations: c.stats.computations.Load(),
		Failures:     c.stats.failures.Load(),
		Evictions:    c.stats.evictions.Load(),
		Entries:      c.Len(),
	}
}
