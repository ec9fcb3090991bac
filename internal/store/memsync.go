package store

import (
	"context"
	"sync"
)

// MemorySyncStore is an in-process SyncStore. Native builds and tests use
// it in place of the host-bridged authoritative store.
// Thread-safe for concurrent access.
type MemorySyncStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemorySyncStore creates an empty in-memory sync store.
func NewMemorySyncStore() *MemorySyncStore {
	return &MemorySyncStore{
		records: make(map[string][]byte),
	}
}

// Put stores a copy of the record for a conversation.
func (s *MemorySyncStore) Put(_ context.Context, conversationID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.records[conversationID] = cp
	return nil
}

// Get retrieves the record for a conversation.
// Returns ErrAbsent if none is stored.
func (s *MemorySyncStore) Get(_ context.Context, conversationID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[conversationID]
	if !ok {
		return nil, ErrAbsent
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Remove deletes the record for a conversation.
func (s *MemorySyncStore) Remove(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, conversationID)
}

// Count returns the number of stored records.
func (s *MemorySyncStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

var _ SyncStore = (*MemorySyncStore)(nil)
