package explorer

import (
	"context"
	"sync"
	"time"
)

// WatermarkStore persists the "last processed block height" cursor keyed
// per network. It is the only mutable state shared across requests, so
// updates go through compare-and-set: a writer that loses the race must
// re-read instead of clobbering a concurrent scan's progress.
type WatermarkStore interface {
	// Get returns the stored height and whether a live (non-expired)
	// entry exists.
	Get(ctx context.Context, key string) (int64, bool, error)

	// CompareAndSet stores next only if the current value still equals
	// old (or no entry exists and old is 0). Returns whether the write
	// happened.
	CompareAndSet(ctx context.Context, key string, old, next int64, ttl time.Duration) (bool, error)
}

// MemoryWatermarkStore is a process-local WatermarkStore for single
// instance deployments and tests.
type MemoryWatermarkStore struct {
	mu      sync.Mutex
	entries map[string]memoryWatermark
}

type memoryWatermark struct {
	height    int64
	expiresAt time.Time
}

// NewMemoryWatermarkStore returns an empty in-memory store.
func NewMemoryWatermarkStore() *MemoryWatermarkStore {
	return &MemoryWatermarkStore{entries: make(map[string]memoryWatermark)}
}

func (s *MemoryWatermarkStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return 0, false, nil
	}
	return entry.height, true, nil
}

func (s *MemoryWatermarkStore) CompareAndSet(_ context.Context, key string, old, next int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if ok && time.Now().After(entry.expiresAt) {
		ok = false
	}
	switch {
	case !ok && old != 0:
		return false, nil
	case ok && entry.height != old:
		return false, nil
	}
	s.entries[key] = memoryWatermark{height: next, expiresAt: time.Now().Add(ttl)}
	return true, nil
}
