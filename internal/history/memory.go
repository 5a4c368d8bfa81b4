package history

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process ring of entries.
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	entries []Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory history store retaining at
// most maxEntries entries. maxEntries <= 0 selects DefaultMaxEntries.
func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{max: maxEntries}
}

// Append implements Store.Append.
func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	return nil
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out, nil
}

// Clear implements Store.Clear.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
