package store

import (
	"sync"

	"patas/internal/session"
)

// InMemoryStore keeps the credential pair in memory. It serves tests and
// ephemeral sessions where persistence across processes is not wanted.
// Every write replaces the full pair.
type InMemoryStore struct {
	mu   sync.RWMutex
	pair *session.TokenPair
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load() (*session.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pair == nil {
		return nil, nil
	}
	copied := *s.pair
	return &copied, nil
}

func (s *InMemoryStore) Save(pair session.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &pair
	return nil
}

func (s *InMemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
