package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Used when no Redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Data{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, id)
		return Data{}, ErrNotFound
	}
	return entry.data, nil
}

// Save stores data and restarts the session lifetime.
func (s *MemoryStore) Save(_ context.Context, id string, data Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{data: cloneData(data), expiresAt: s.now().Add(s.ttl)}
	s.pruneLocked()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) pruneLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func cloneData(data Data) Data {
	if data.Auth != nil {
		auth := *data.Auth
		data.Auth = &auth
	}
	return data
}
