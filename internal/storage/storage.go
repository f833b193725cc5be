// Package storage persists complete inventory snapshots.
//
// A snapshot is the exported State of an inventory.Manager stored under a
// name. Concrete stores live in the file and postgres subpackages; Fanout
// combines several of them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/stash/internal/game/inventory"
)

// ErrSnapshotNotFound is returned when no snapshot exists under a name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrInvalidName is returned for snapshot names that are empty or contain
// path elements.
var ErrInvalidName = errors.New("invalid snapshot name")

// SnapshotStore saves and loads named snapshots.
type SnapshotStore interface {
	// Save stores st under name, replacing any previous snapshot.
	Save(ctx context.Context, name string, st *inventory.State) error
	// Load returns the snapshot stored under name, or an error wrapping
	// ErrSnapshotNotFound.
	Load(ctx context.Context, name string) (*inventory.State, error)
}

// ValidateName rejects names that could escape a store's namespace.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Fanout writes every snapshot to all of its stores concurrently and reads
// from the first store that has it.
type Fanout struct {
	stores []SnapshotStore
	logger *zap.Logger
}

// NewFanout creates a Fanout over stores, consulted in the given order on
// Load.
//
// Precondition: logger must be non-nil.
func NewFanout(logger *zap.Logger, stores ...SnapshotStore) *Fanout {
	return &Fanout{stores: stores, logger: logger}
}

// Save stores st in every store.
//
// Postcondition: returns the first store error; other stores may still have
// been written.
func (f *Fanout) Save(ctx context.Context, name string, st *inventory.State) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range f.stores {
		g.Go(func() error {
			if err := s.Save(ctx, name, st); err != nil {
				f.logger.Warn("snapshot store save failed",
					zap.Int("store", i),
					zap.String("snapshot", name),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("storage: Fanout.Save: %w", err)
	}
	return nil
}

// Load returns the snapshot from the first store that has it.
//
// Postcondition: returns an error wrapping ErrSnapshotNotFound when no store
// has name; any other store error is returned immediately.
func (f *Fanout) Load(ctx context.Context, name string) (*inventory.State, error) {
	for i, s := range f.stores {
		st, err := s.Load(ctx, name)
		if errors.Is(err, ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: Fanout.Load: store %d: %w", i, err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("storage: Fanout.Load: %q: %w", name, ErrSnapshotNotFound)
}
