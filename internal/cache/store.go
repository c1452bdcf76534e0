package cache

import (
	"container/list"
	"time"
)

// entry is a stored value plus its expiration instant. A zero expiresAt
// means the entry never expires.
type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// store is one owner's bounded key-value structure, ordered by recency of
// touch (front of the list is most recently used). It is deliberately
// unsynchronized: exactly one execution unit ever touches a given store,
// so locking here would be pure overhead. The registry enforces the
// one-owner-per-store mapping.
type store struct {
	capacity int
	elems    map[string]*list.Element
	order    *list.List
}

type storeItem struct {
	key string
	ent entry
}

func newStore(capacity int) *store {
	return &store{
		capacity: capacity,
		elems:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// put inserts or overwrites key and marks it most recently used.
// Overwriting a resident key never triggers eviction; a new key that
// pushes the store past capacity evicts the least recently used key,
// expired or not.
func (s *store) put(key string, ent entry) {
	if el, ok := s.elems[key]; ok {
		el.Value.(*storeItem).ent = ent
		s.order.MoveToFront(el)
		return
	}
	s.elems[key] = s.order.PushFront(&storeItem{key: key, ent: ent})
	if s.order.Len() > s.capacity {
		s.evictOldest()
	}
}

// get returns the entry for key, marking it most recently used.
// Expiry is the caller's concern; the store only tracks recency.
func (s *store) get(key string) (entry, bool) {
	el, ok := s.elems[key]
	if !ok {
		return entry{}, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*storeItem).ent, true
}

func (s *store) remove(key string) {
	if el, ok := s.elems[key]; ok {
		s.order.Remove(el)
		delete(s.elems, key)
	}
}

func (s *store) evictOldest() {
	el := s.order.Back()
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.elems, el.Value.(*storeItem).key)
}

func (s *store) len() int { return s.order.Len() }
