package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stash/internal/game/inventory"
)

// Snapshotter saves and restores a Manager's state under one snapshot name.
// Saves are skipped while the manager's version is unchanged since the last
// successful save.
// All methods are safe for concurrent use.
type Snapshotter struct {
	store  SnapshotStore
	name   string
	mgr    *inventory.Manager
	logger *zap.Logger

	mu        sync.Mutex
	saved     bool
	lastSaved uint64
}

// NewSnapshotter creates a Snapshotter.
//
// Precondition: store, mgr and logger must be non-nil; name must pass ValidateName.
func NewSnapshotter(store SnapshotStore, name string, mgr *inventory.Manager, logger *zap.Logger) *Snapshotter {
	return &Snapshotter{store: store, name: name, mgr: mgr, logger: logger}
}

// Restore imports the stored snapshot into the manager.
//
// Postcondition: returns false with a nil error when no snapshot exists; the
// manager is unchanged on any error.
func (s *Snapshotter) Restore(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load(ctx, s.name)
	if errors.Is(err, ErrSnapshotNotFound) {
		s.logger.Info("no snapshot to restore", zap.String("snapshot", s.name))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: Snapshotter.Restore: %w", err)
	}
	if err := s.mgr.Import(*st); err != nil {
		return false, fmt.Errorf("storage: Snapshotter.Restore: %q: %w", s.name, err)
	}
	s.saved = true
	s.lastSaved = s.mgr.Version()
	return true, nil
}

// Save writes the manager's state unless nothing changed since the last save.
// It reports whether a snapshot was written.
func (s *Snapshotter) Save(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.mgr.Version()
	if s.saved && v == s.lastSaved {
		return false, nil
	}
	st := s.mgr.Export()
	if err := s.store.Save(ctx, s.name, &st); err != nil {
		return false, fmt.Errorf("storage: Snapshotter.Save: %w", err)
	}
	s.saved = true
	s.lastSaved = v
	s.logger.Debug("snapshot saved",
		zap.String("snapshot", s.name),
		zap.Int("inventories", len(st.Inventories)),
		zap.Uint64("version", v),
	)
	return true, nil
}

// Tick is Save in the shape expected by server.TickerService.
func (s *Snapshotter) Tick(ctx context.Context) error {
	_, err := s.Save(ctx)
	return err
}
