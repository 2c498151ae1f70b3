// Package memory implements an in-memory storage medium for tests.
package memory

import (
	"context"
	"sync"

	"aeracore/internal/medium/core"
)

// Store implements core.Medium backed by process memory.
type Store struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	writes int
}

// New returns an empty in-memory medium.
func New() *Store { return &Store{blobs: make(map[string][]byte)} }

// Driver returns the medium driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Read returns a copy of the blob stored under key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, core.ErrNotExist
	}
	return append([]byte(nil), data...), nil
}

// Write replaces the blob stored under key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	s.writes++
	return nil
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Writes reports how many successful writes the store has accepted.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		out = append(out, k)
	}
	return out
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
