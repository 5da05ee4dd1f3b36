package roles

import (
	"context"
	"sync"
)

// MemoryStore is the in-process catalog cache used by single-instance
// gateways and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog Catalog
	ok      bool
}

// NewMemoryStore returns an empty in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (Catalog, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return nil, false, nil
	}
	return s.catalog, true, nil
}

func (s *MemoryStore) Set(_ context.Context, c Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
	s.ok = true
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = nil
	s.ok = false
	return nil
}
