package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used when no Redis address is
// configured, and in tests. Values do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]map[string]string),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, ok := s.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.sessions[sessionID]
	if !ok {
		values = make(map[string]string)
		s.sessions[sessionID] = values
	}
	values[key] = value
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if values, ok := s.sessions[sessionID]; ok {
		delete(values, key)
		if len(values) == 0 {
			delete(s.sessions, sessionID)
		}
	}
	return nil
}
