// Package cache implements a bounded, expiring cache that gives every
// execution context its own private store.
//
// A Handler is an immutable capacity/TTL snapshot created by New. Each
// distinct Owner that calls Put or Get against a handler gets its own
// lazily created LRU store, so the hot paths never contend: the only
// synchronization in the package is the find-or-create step that
// materializes a store on an owner's first access. Expired entries are
// discovered and reclaimed lazily on Get; there is no background sweeper.
//
// The flip side of the lock-free design is that an Owner must map 1:1 to
// an actual isolated execution unit. Two goroutines sharing one Owner
// would corrupt each other's store; callers enforce the mapping at the
// boundary (see the worker package for how the demo service does it).
package cache

import "time"

// Owner identifies one isolated execution unit entitled to its own private
// store. The value is opaque to the cache; a worker index, a goroutine
// name, anything stable for the lifetime of the execution unit works.
type Owner string

// Handler is an immutable capacity/TTL configuration snapshot exposing the
// cache's Put and Get operations. Handlers created by separate New calls
// are fully independent, even for identical owners and keys.
type Handler struct {
	capacity int
	ttl      time.Duration
	stores   *registry

	now func() time.Time // swapped out in tests
}

// New creates a handler whose per-owner stores hold at most capacity
// entries and whose entries expire ttl after they are written. A ttl of
// zero or less means entries never expire. As a side effect the given
// settings become the process-wide last-configured defaults reported by
// LastConfigured; existing handlers are never affected.
func New(capacity int, ttl time.Duration) (*Handler, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	if ttl < 0 {
		ttl = 0
	}
	setLastConfigured(capacity, ttl)
	return &Handler{
		capacity: capacity,
		ttl:      ttl,
		stores:   newRegistry(capacity),
		now:      time.Now,
	}, nil
}

// Put stores value under key in owner's store, overwriting any previous
// entry for the same key and marking it most recently used. The expiry
// deadline is fixed at write time from the handler's TTL; it is never
// extended by later reads. If the insert pushes the store past capacity
// the least recently used key is evicted.
func (h *Handler) Put(owner Owner, key string, value any) {
	var expiresAt time.Time
	if h.ttl > 0 {
		expiresAt = h.now().Add(h.ttl)
	}
	h.stores.getOrCreate(owner).put(key, entry{value: value, expiresAt: expiresAt})
}

// Get returns the value stored under key in owner's store. A hit marks the
// key most recently used. An entry observed past its deadline is removed
// and reported as absent; callers cannot distinguish "expired" from "never
// stored". The returned value is whatever Put stored -- asserting it to a
// concrete type is the caller's concern.
func (h *Handler) Get(owner Owner, key string) (any, bool) {
	s := h.stores.getOrCreate(owner)
	e, ok := s.get(key)
	if !ok {
		return nil, false
	}
	if e.expired(h.now()) {
		s.remove(key)
		return nil, false
	}
	return e.value, true
}

// Len reports how many entries owner's store currently holds, without
// creating a store or touching recency. Like Put and Get it must only be
// called from the owning execution unit.
func (h *Handler) Len(owner Owner) int {
	s := h.stores.peek(owner)
	if s == nil {
		return 0
	}
	return s.len()
}

// Capacity returns the per-owner entry limit this handler was created with.
func (h *Handler) Capacity() int { return h.capacity }

// TTL returns the entry lifetime this handler was created with. Zero means
// entries never expire.
func (h *Handler) TTL() time.Duration { return h.ttl }
