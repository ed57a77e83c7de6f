package mirror

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	updatedAt time.Time
}

// MemoryStore is an in-process Store for tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an empty in-memory mirror.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Get returns a copy of the payload of a table.
func (s *MemoryStore) Get(ctx context.Context, table string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[table]
	if !ok {
		return nil, ErrMissing
	}

	result := make([]byte, len(entry.payload))
	copy(result, entry.payload)
	return result, nil
}

// Set overwrites the payload of a table.
func (s *MemoryStore) Set(ctx context.Context, table string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	valueCopy := make([]byte, len(payload))
	copy(valueCopy, payload)

	s.entries[table] = &memoryEntry{payload: valueCopy, updatedAt: time.Now()}
	return nil
}

// Delete removes a table entry.
func (s *MemoryStore) Delete(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, table)
	return nil
}

// Keys lists the stored table keys in sorted order.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Stats returns the entry count and total payload size.
func (s *MemoryStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var size int
	for _, e := range s.entries {
		size += len(e.payload)
	}
	return map[string]interface{}{
		"backend":       "memory",
		"total_entries": len(s.entries),
		"payload_bytes": size,
	}, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
