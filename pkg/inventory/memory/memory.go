// Package memory implements an in-memory snapshot store.
package memory

import (
	"context"
	"sync"

	"stockledger/pkg/inventory"
)

// Store holds the snapshot in process memory. Load and Save copy, so
// callers never share slices with the store.
type Store struct {
	mu   sync.RWMutex
	snap inventory.Snapshot
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the current snapshot.
func (s *Store) Load(ctx context.Context) (inventory.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// Save replaces the current snapshot.
func (s *Store) Save(ctx context.Context, snap inventory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}
