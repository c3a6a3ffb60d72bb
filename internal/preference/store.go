package preference

import (
	"context"
	"sync"
)

// Keys of the preferences the scheduler keeps per actor.
const (
	KeyBoardFilters  = "scheduler.board-filters"
	KeyCloneSettings = "scheduler.clone-settings"
)

// Store keeps opaque string values per actor. Get returns "" for a missing key.
type Store interface {
	Get(ctx context.Context, actorID, key string) (string, error)
	Set(ctx context.Context, actorID, key, value string) error
}

// memoryStore keeps preferences for the lifetime of the process.
type memoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore returns a process-local Store, used when no redis is configured.
func NewMemoryStore() Store {
	return &memoryStore{values: make(map[string]map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, actorID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[actorID][key], nil
}

func (s *memoryStore) Set(_ context.Context, actorID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.values[actorID]
	if !ok {
		m = make(map[string]string)
		s.values[actorID] = m
	}
	m[key] = value
	return nil
}
