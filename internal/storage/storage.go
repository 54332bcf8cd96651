// Package storage is the client-local persistence backend used for snapshot
// rehydration. It is a best-effort cache, never a source of truth: corrupt
// or missing entries degrade to "no snapshot".
package storage

import (
	"sync"
)

// Store is the minimal key/value surface the reconciled state store needs.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, data []byte) error
	Remove(key string) error
}

// MemStore is an in-process Store, used in tests and as the fallback when
// no snapshot directory is configured.
type MemStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string][]byte{}}
}

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.m[key]
	return data, ok, nil
}

func (s *MemStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
