package inventory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/game/item"
	"github.com/cory-johannsen/stash/internal/testutil"
)

func TestInventoryState_RoundTripKeepsLayout(t *testing.T) {
	inv, reg := newInventory(t, 4)
	mp := mustCreate(t, reg, testutil.PotionID)
	mustAdd(t, inv, testutil.PotionID, 3)
	mustAdd(t, inv, mp, 1)
	mustAdd(t, inv, testutil.ShieldID, 1)
	_, err := inv.RemoveItem(testutil.ShieldID, 1)
	require.NoError(t, err)
	mustAdd(t, inv, testutil.GoldID, 5)

	st := inv.Export()
	blob, err := json.Marshal(st)
	require.NoError(t, err)
	var decoded inventory.InventoryState
	require.NoError(t, json.Unmarshal(blob, &decoded))

	got, err := inventory.ImportInventory(decoded, reg)
	require.NoError(t, err)
	assert.Equal(t, inv.ID(), got.ID())
	require.Equal(t, inv.NumSlots(), got.NumSlots())
	for i := 0; i < inv.NumSlots(); i++ {
		assert.Equal(t, inv.Slot(i), got.Slot(i), "slot %d", i)
	}
}

func TestImportInventory_Rejects(t *testing.T) {
	reg := testutil.Registry(t)
	mod, err := reg.Create(testutil.SwordID, "")
	require.NoError(t, err)

	for _, tc := range []struct {
		name string
		st   inventory.InventoryState
		want error
	}{
		{
			name: "empty id",
			st:   inventory.InventoryState{Slots: []inventory.SlotState{{}}},
			want: item.ErrInvalidOperation,
		},
		{
			name: "unknown item",
			st:   inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{{ItemID: "no.such.item", Quantity: 1}}},
			want: item.ErrNotFound,
		},
		{
			name: "stack keyed by instance",
			st:   inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{{ItemID: mod, Quantity: 1}}},
			want: item.ErrInvalidOperation,
		},
		{
			name: "over max stack",
			st:   inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{{ItemID: testutil.PotionID, Quantity: 11}}},
			want: item.ErrInvalidOperation,
		},
		{
			name: "more instances than units",
			st: inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{
				{ItemID: testutil.SwordID, Quantity: 1, InstanceIDs: []string{mod, mod}},
			}},
			want: item.ErrInvalidOperation,
		},
		{
			name: "instance of another item",
			st: inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{
				{ItemID: testutil.PotionID, Quantity: 2, InstanceIDs: []string{mod}},
			}},
			want: item.ErrInvalidOperation,
		},
		{
			name: "quantity without item",
			st:   inventory.InventoryState{ID: "a", Slots: []inventory.SlotState{{Quantity: 3}}},
			want: item.ErrNotFound,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := inventory.ImportInventory(tc.st, reg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
