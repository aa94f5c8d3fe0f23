// Package storage provides the KeyValueStore drivers: an in-memory map,
// a directory of JSON documents, and an embedded Badger database.
package storage

import (
	"context"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// MemoryStore keeps values in a map. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get implements ports.KeyValueStore.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, domain.NewNotFoundError("key", key)
	}

	return append([]byte(nil), v...), nil
}

// Set implements ports.KeyValueStore.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)

	return nil
}

// Close implements ports.KeyValueStore.
func (s *MemoryStore) Close() error { return nil }

// Name implements ports.HealthChecker.
func (s *MemoryStore) Name() string { return "storage" }

// Check implements ports.HealthChecker.
func (s *MemoryStore) Check(ctx context.Context) error { return ctx.Err() }
