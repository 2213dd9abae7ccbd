package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store fake for unit tests, letting
// nodemgr/scheduler/health/fault be exercised without a Bolt file or
// a Redis server, per the constructor-injected-collaborator design.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	sets    map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) AddToSet(_ context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sets[set]
	if !ok {
		m = make(map[string]struct{})
		s.sets[set] = m
	}
	m[member] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveFromSet(_ context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.sets[set]; ok {
		delete(m, member)
	}
	return nil
}

func (s *MemoryStore) Members(_ context.Context, set string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.sets[set]
	members := make([]string, 0, len(m))
	for k := range m {
		members = append(members, k)
	}
	return members, nil
}

func (s *MemoryStore) DeleteWithSet(_ context.Context, key, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	if m, ok := s.sets[set]; ok {
		delete(m, member)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
