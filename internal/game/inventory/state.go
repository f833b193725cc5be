package inventory

import (
	"fmt"
	"maps"
	"slices"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// SlotState is the serialized form of a Slot.
type SlotState struct {
	ItemID      string   `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	Quantity    int      `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	InstanceIDs []string `json:"instance_ids,omitempty" yaml:"instance_ids,omitempty"`
}

// InventoryState is the serialized form of an Inventory. Empty slots are kept
// so slot positions survive a round trip.
type InventoryState struct {
	ID    string      `json:"id" yaml:"id"`
	Slots []SlotState `json:"slots" yaml:"slots"`
}

// State is a complete snapshot of a Manager: the modified item registry and
// every inventory in creation order.
type State struct {
	ModifiedItems []item.ModifiedItem `json:"modified_items" yaml:"modified_items"`
	Inventories   []InventoryState    `json:"inventories" yaml:"inventories"`
}

// Export returns the serialized form of inv.
func (inv *Inventory) Export() InventoryState {
	out := InventoryState{ID: inv.id, Slots: make([]SlotState, len(inv.slots))}
	for i := range inv.slots {
		s := &inv.slots[i]
		out.Slots[i] = SlotState{
			ItemID:      s.itemID,
			Quantity:    s.quantity,
			InstanceIDs: slices.Clone(s.instanceIDs),
		}
	}
	return out
}

// ImportInventory rebuilds an Inventory from st and validates it.
//
// Postcondition: returns an error wrapping ErrNotFound if st names an item
// res cannot resolve, or ErrInvalidOperation if it violates a slot invariant.
func ImportInventory(st InventoryState, res Resolver) (*Inventory, error) {
	if st.ID == "" {
		return nil, fmt.Errorf("inventory: ImportInventory: empty id: %w", item.ErrInvalidOperation)
	}
	inv := NewInventory(st.ID, len(st.Slots), res)
	for i, s := range st.Slots {
		if s.Quantity == 0 && s.ItemID == "" && len(s.InstanceIDs) == 0 {
			continue
		}
		if res.IsModified(s.ItemID) {
			return nil, fmt.Errorf("inventory: ImportInventory: %q slot %d: stack of modified item %q: %w", st.ID, i, s.ItemID, item.ErrInvalidOperation)
		}
		if _, err := res.Def(s.ItemID); err != nil {
			return nil, fmt.Errorf("inventory: ImportInventory: %q slot %d: %w", st.ID, i, err)
		}
		inv.slots[i] = Slot{itemID: s.ItemID, quantity: s.Quantity, instanceIDs: slices.Clone(s.InstanceIDs)}
	}
	if err := inv.CheckConsistency(); err != nil {
		return nil, fmt.Errorf("inventory: ImportInventory: %v: %w", err, item.ErrInvalidOperation)
	}
	return inv, nil
}

// restore overwrites inv's slots with st, which must have been exported from
// inv.
func (inv *Inventory) restore(st InventoryState) {
	inv.release(inv.instanceIDs())
	for i, s := range st.Slots {
		inv.slots[i] = Slot{itemID: s.ItemID, quantity: s.Quantity, instanceIDs: slices.Clone(s.InstanceIDs)}
	}
	if inv.held != nil {
		inv.held.assign(inv.id, inv.instanceIDs())
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	var out State
	if s.ModifiedItems != nil {
		out.ModifiedItems = make([]item.ModifiedItem, len(s.ModifiedItems))
		for i, m := range s.ModifiedItems {
			out.ModifiedItems[i] = item.ModifiedItem{ID: m.ID, BaseID: m.BaseID, Deltas: maps.Clone(m.Deltas)}
		}
	}
	if s.Inventories != nil {
		out.Inventories = make([]InventoryState, len(s.Inventories))
		for i, is := range s.Inventories {
			out.Inventories[i] = InventoryState{ID: is.ID, Slots: slices.Clone(is.Slots)}
			for j := range out.Inventories[i].Slots {
				out.Inventories[i].Slots[j].InstanceIDs = slices.Clone(is.Slots[j].InstanceIDs)
			}
		}
	}
	return out
}
