package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/storage"
	"github.com/cory-johannsen/stash/internal/testutil"
)

func TestSnapshotter_RestoreMissing(t *testing.T) {
	mgr := inventory.NewManager(testutil.Registry(t), nil)
	s := storage.NewSnapshotter(storage.NewMemoryStore(), "world", mgr, zaptest.NewLogger(t))

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotter_SaveSkipsWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	mgr := inventory.NewManager(testutil.Registry(t), nil)
	s := storage.NewSnapshotter(storage.NewMemoryStore(), "world", mgr, zaptest.NewLogger(t))

	wrote, err := s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, wrote, "first save always writes")

	wrote, err = s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)

	_, err = mgr.CreateInventory(2)
	require.NoError(t, err)
	wrote, err = s.Save(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)

	require.NoError(t, s.Tick(ctx))
	wrote, err = s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)
}

func TestSnapshotter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	src := inventory.NewManager(testutil.Registry(t), nil)
	id, err := src.CreateInventory(2)
	require.NoError(t, err)
	_, err = src.AddItem(id, testutil.GoldID, 150)
	require.NoError(t, err)
	_, err = storage.NewSnapshotter(store, "world", src, zaptest.NewLogger(t)).Save(ctx)
	require.NoError(t, err)

	dst := inventory.NewManager(testutil.Registry(t), nil)
	s := storage.NewSnapshotter(store, "world", dst, zaptest.NewLogger(t))
	ok, err := s.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	held, err := dst.ItemsOf(id)
	require.NoError(t, err)
	assert.Equal(t, 150, held.Get(testutil.GoldID))

	wrote, err := s.Save(ctx)
	require.NoError(t, err)
	assert.False(t, wrote, "freshly restored state is already saved")
}

func TestSnapshotter_SaveFailureRetries(t *testing.T) {
	ctx := context.Background()
	mgr := inventory.NewManager(testutil.Registry(t), nil)
	boom := errors.New("disk full")
	s := storage.NewSnapshotter(failingStore{err: boom}, "world", mgr, zaptest.NewLogger(t))

	_, err := s.Save(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Tick(ctx), boom, "a failed save is not remembered as written")
}

func TestSnapshotter_RestoreRejectsBadState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	bad := inventory.State{Inventories: []inventory.InventoryState{{ID: "x"}, {ID: "x"}}}
	require.NoError(t, store.Save(ctx, "world", &bad))

	mgr := inventory.NewManager(testutil.Registry(t), nil)
	_, err := storage.NewSnapshotter(store, "world", mgr, zaptest.NewLogger(t)).Restore(ctx)
	assert.Error(t, err)
	assert.Zero(t, mgr.Len())
}
