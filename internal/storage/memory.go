package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/cory-johannsen/stash/internal/game/inventory"
)

// MemoryStore keeps snapshots in process memory. It backs the "none" storage
// backend and tests.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string]inventory.State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]inventory.State)}
}

// Save stores a copy of st under name.
func (m *MemoryStore) Save(_ context.Context, name string, st *inventory.State) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("storage: MemoryStore.Save: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[name] = st.Clone()
	return nil
}

// Load returns a copy of the snapshot stored under name.
func (m *MemoryStore) Load(_ context.Context, name string) (*inventory.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.snapshots[name]
	if !ok {
		return nil, fmt.Errorf("storage: MemoryStore.Load: %q: %w", name, ErrSnapshotNotFound)
	}
	out := st.Clone()
	return &out, nil
}
