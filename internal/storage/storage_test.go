package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/game/item"
	"github.com/cory-johannsen/stash/internal/storage"
	"github.com/cory-johannsen/stash/internal/testutil"
)

func sampleState() *inventory.State {
	return &inventory.State{
		ModifiedItems: []item.ModifiedItem{
			{ID: "sword-1", BaseID: testutil.SwordID, Deltas: map[item.Statistic]int{item.StatValue: -10}},
		},
		Inventories: []inventory.InventoryState{
			{ID: "bag", Slots: []inventory.SlotState{
				{ItemID: testutil.SwordID, Quantity: 1, InstanceIDs: []string{"sword-1"}},
				{},
				{ItemID: testutil.PotionID, Quantity: 7},
			}},
		},
	}
}

type failingStore struct{ err error }

func (f failingStore) Save(context.Context, string, *inventory.State) error { return f.err }

func (f failingStore) Load(context.Context, string) (*inventory.State, error) { return nil, f.err }

func TestValidateName(t *testing.T) {
	for _, name := range []string{"world", "autosave-1", "player_42.bak"} {
		assert.NoError(t, storage.ValidateName(name), name)
	}
	for _, name := range []string{"", ".", "..", ".hidden", "a/b", `a\b`, "../escape"} {
		assert.ErrorIs(t, storage.ValidateName(name), storage.ErrInvalidName, name)
	}
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	_, err := s.Load(ctx, "world")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	st := sampleState()
	require.NoError(t, s.Save(ctx, "world", st))
	st.Inventories[0].Slots[2].Quantity = 1

	got, err := s.Load(ctx, "world")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Inventories[0].Slots[2].Quantity, "store keeps its own copy")
	assert.Equal(t, sampleState(), got)

	assert.ErrorIs(t, s.Save(ctx, "../x", st), storage.ErrInvalidName)
}

func TestFanout_SavesEverywhere(t *testing.T) {
	ctx := context.Background()
	a, b := storage.NewMemoryStore(), storage.NewMemoryStore()
	f := storage.NewFanout(zaptest.NewLogger(t), a, b)

	require.NoError(t, f.Save(ctx, "world", sampleState()))
	for _, s := range []*storage.MemoryStore{a, b} {
		got, err := s.Load(ctx, "world")
		require.NoError(t, err)
		assert.Equal(t, sampleState(), got)
	}
}

func TestFanout_SaveReportsFailure(t *testing.T) {
	boom := errors.New("boom")
	f := storage.NewFanout(zaptest.NewLogger(t), storage.NewMemoryStore(), failingStore{err: boom})

	assert.ErrorIs(t, f.Save(context.Background(), "world", sampleState()), boom)
}

func TestFanout_LoadFallsThrough(t *testing.T) {
	ctx := context.Background()
	empty, full := storage.NewMemoryStore(), storage.NewMemoryStore()
	require.NoError(t, full.Save(ctx, "world", sampleState()))

	got, err := storage.NewFanout(zaptest.NewLogger(t), empty, full).Load(ctx, "world")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	_, err = storage.NewFanout(zaptest.NewLogger(t), empty).Load(ctx, "world")
	assert.ErrorIs(t, err, storage.ErrSnapshotNotFound)

	boom := errors.New("boom")
	_, err = storage.NewFanout(zaptest.NewLogger(t), failingStore{err: boom}, full).Load(ctx, "world")
	assert.ErrorIs(t, err, boom)
}

func TestSnapshot_RestoresManager(t *testing.T) {
	ctx := context.Background()
	m := inventory.NewManager(testutil.Registry(t), zaptest.NewLogger(t))
	id, err := m.CreateInventory(4)
	require.NoError(t, err)
	_, err = m.AddItem(id, testutil.GoldID, 150)
	require.NoError(t, err)

	s := storage.NewMemoryStore()
	st := m.Export()
	require.NoError(t, s.Save(ctx, "world", &st))

	loaded, err := s.Load(ctx, "world")
	require.NoError(t, err)
	restored := inventory.NewManager(testutil.Registry(t), zaptest.NewLogger(t))
	require.NoError(t, restored.Import(*loaded))

	items, err := restored.ItemsOf(id)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{testutil.GoldID: 150}, items.Map())
}
