package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryEntry holds one key's recorded timestamps (unix milliseconds, in
// insertion order, which is also timestamp order) and its expiry deadline.
type memoryEntry struct {
	stamps   []int64
	deadline time.Time
}

// MemoryStore is an in-process Store backed by a mutex-protected map. It
// mirrors RedisStore semantics closely enough for unit tests and
// single-instance deployments, but its state is local to the process, so it
// cannot enforce a global budget across replicas.
type MemoryStore struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
	}
}

// PruneAndCount drops entries older than floor and returns the live count.
func (s *MemoryStore) PruneAndCount(ctx context.Context, key string, floor time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return 0, nil
	}

	cut := floor.UnixMilli()
	i := 0
	for i < len(e.stamps) && e.stamps[i] < cut {
		i++
	}
	e.stamps = e.stamps[i:]
	if len(e.stamps) == 0 {
		delete(s.entries, key)
		return 0, nil
	}
	return int64(len(e.stamps)), nil
}

// CountSince counts entries at or after floor without removing anything.
func (s *MemoryStore) CountSince(ctx context.Context, key string, floor time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return 0, nil
	}

	cut := floor.UnixMilli()
	var n int64
	for _, stamp := range e.stamps {
		if stamp >= cut {
			n++
		}
	}
	return n, nil
}

// Record appends an entry for key and refreshes its expiry deadline.
func (s *MemoryStore) Record(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.stamps = append(e.stamps, at.UnixMilli())
	e.deadline = s.now().Add(ttl)
	return nil
}

// Clear deletes all state for the given keys.
func (s *MemoryStore) Clear(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// Close is a no-op; the store holds no external resources.
func (s *MemoryStore) Close() error { return nil }

// Len reports how many keys currently hold state. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live returns the entry for key, evicting it first if its TTL has lapsed.
// Must be called with s.mu held.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.now().After(e.deadline) {
		delete(s.entries, key)
		return nil
	}
	return e
}
