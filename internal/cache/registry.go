package cache

import "sync"

// registry maps each owner to its lazily created store. Find-or-create is
// the only operation: stores are never removed, they live as long as the
// handler does. Two owners may race to materialize their stores on first
// access, so this is the one structure in the package that takes a lock;
// the store bodies themselves are single-owner and unsynchronized.
type registry struct {
	mu       sync.RWMutex
	stores   map[Owner]*store
	capacity int
}

func newRegistry(capacity int) *registry {
	return &registry{
		stores:   make(map[Owner]*store),
		capacity: capacity,
	}
}

// getOrCreate returns owner's store, materializing it on first use.
// Uses double-check locking to keep the steady-state path on the read lock.
func (r *registry) getOrCreate(owner Owner) *store {
	r.mu.RLock()
	s, ok := r.stores[owner]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Double-check after acquiring write lock.
	if s, ok := r.stores[owner]; ok {
		return s
	}
	s = newStore(r.capacity)
	r.stores[owner] = s
	return s
}

// peek returns owner's store without creating one.
func (r *registry) peek(owner Owner) *store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stores[owner]
}
