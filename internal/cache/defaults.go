package cache

import (
	"sync/atomic"
	"time"
)

// Process-wide "last configured" defaults, overwritten by every successful
// New call. They carry no correctness role: handlers capture their settings
// at construction and never read these again. They exist so demo and
// introspection code can report what was most recently configured.
var (
	lastCapacity atomic.Int64
	lastTTL      atomic.Int64 // nanoseconds
)

func init() {
	lastCapacity.Store(100)
}

func setLastConfigured(capacity int, ttl time.Duration) {
	lastCapacity.Store(int64(capacity))
	lastTTL.Store(int64(ttl))
}

// LastConfigured reports the capacity and TTL passed to the most recent
// successful New call, or the initial defaults (100 entries, no TTL) when
// no handler has been created yet.
func LastConfigured() (capacity int, ttl time.Duration) {
	return int(lastCapacity.Load()), time.Duration(lastTTL.Load())
}
