package inventory

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/stash/internal/game/item"
)

type entry struct {
	mu   sync.Mutex
	inv  *Inventory
	dead bool // unregistered by RemoveInventory or Import
}

// Manager owns every live inventory together with the modified item registry
// they resolve IDs through. It hands out stable inventory IDs and serializes
// access to each inventory. A modified instance is held by at most one of its
// inventories at a time.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	items   *item.ModifiedRegistry
	held    *holders
	logger  *zap.Logger
	order   []string          // creation order
	entries map[string]*entry // id → entry

	version atomic.Uint64
}

// NewManager creates an empty Manager.
//
// Precondition: items must be non-nil; a nil logger is replaced by zap.NewNop.
func NewManager(items *item.ModifiedRegistry, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		items:   items,
		held:    newHolders(),
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Items returns the modified item registry.
func (m *Manager) Items() *item.ModifiedRegistry { return m.items }

// Version returns a counter that increases whenever the manager's state may
// have changed. Export and the read-only queries leave it untouched.
func (m *Manager) Version() uint64 { return m.version.Load() }

func (m *Manager) touch() { m.version.Add(1) }

// CreateInventory creates an empty inventory with size slots and returns its
// ID.
//
// Postcondition: returns ErrInvalidOperation when size is negative.
func (m *Manager) CreateInventory(size int) (string, error) {
	if size < 0 {
		return "", fmt.Errorf("inventory: Manager.CreateInventory: negative size %d: %w", size, item.ErrInvalidOperation)
	}
	inv := NewInventory(uuid.New().String(), size, m.items)
	inv.held = m.held

	m.mu.Lock()
	m.entries[inv.id] = &entry{inv: inv}
	m.order = append(m.order, inv.id)
	m.mu.Unlock()

	m.touch()
	m.logger.Debug("inventory created", zap.String("inventory_id", inv.id), zap.Int("slots", size))
	return inv.id, nil
}

// Inventory returns the inventory registered under id. The caller must not
// use it concurrently with other access; prefer WithInventories.
//
// Postcondition: returns ErrInventoryNotFound for an unknown id.
func (m *Manager) Inventory(id string) (*Inventory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("inventory: Manager.Inventory: %q: %w", id, ErrInventoryNotFound)
	}
	return e.inv, nil
}

// IsValidInventoryID reports whether id names a registered inventory.
func (m *Manager) IsValidInventoryID(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok
}

// Len returns the number of registered inventories.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// IDs returns the inventory IDs in creation order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// RemoveInventory unregisters id and reports whether it was present. The
// modified items it held stay registered and may be added elsewhere.
func (m *Manager) RemoveInventory(id string) bool {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
		m.order = slices.DeleteFunc(m.order, func(o string) bool { return o == id })
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.dead = true
	e.inv.release(e.inv.instanceIDs())
	e.mu.Unlock()

	m.touch()
	m.logger.Debug("inventory removed", zap.String("inventory_id", id))
	return true
}

// CreateModifiedItem registers a modified instance of baseID. An empty
// explicitID generates one.
func (m *Manager) CreateModifiedItem(baseID, explicitID string) (string, error) {
	id, err := m.items.Create(baseID, explicitID)
	if err != nil {
		return "", fmt.Errorf("inventory: Manager.CreateModifiedItem: %w", err)
	}
	m.touch()
	m.logger.Debug("modified item created", zap.String("item_id", id), zap.String("base_id", baseID))
	return id, nil
}

// DestroyModifiedItem unregisters the modified item id and reports whether it
// existed.
//
// Postcondition: returns ErrInvalidOperation while any inventory holds id.
func (m *Manager) DestroyModifiedItem(id string) (bool, error) {
	var destroyed bool
	err := m.held.unlessHeld(id, func() error {
		destroyed = m.items.Destroy(id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("inventory: Manager.DestroyModifiedItem: %w", err)
	}
	if destroyed {
		m.touch()
		m.logger.Debug("modified item destroyed", zap.String("item_id", id))
	}
	return destroyed, nil
}

// ModifiedItem returns a copy of the modified item id.
func (m *Manager) ModifiedItem(id string) (item.ModifiedItem, bool) {
	return m.items.Get(id)
}

// SetStatDelta sets a statistic delta on the modified item id.
func (m *Manager) SetStatDelta(id string, stat item.Statistic, value int) error {
	if err := m.items.SetStatDelta(id, stat, value); err != nil {
		return fmt.Errorf("inventory: Manager.SetStatDelta: %w", err)
	}
	m.touch()
	return nil
}

// ModifyStatDelta adjusts a statistic delta on the modified item id and
// returns the new delta.
func (m *Manager) ModifyStatDelta(id string, stat item.Statistic, delta int) (int, error) {
	v, err := m.items.ModifyStatDelta(id, stat, delta)
	if err != nil {
		return 0, fmt.Errorf("inventory: Manager.ModifyStatDelta: %w", err)
	}
	m.touch()
	return v, nil
}

// WithInventories runs fn with exclusive access to the inventories named by
// ids, passed in the order given. Locks are taken in sorted ID order so
// concurrent calls over overlapping sets cannot deadlock. A repeated ID is
// passed twice but locked once. fn must not call back into the Manager.
//
// Postcondition: returns ErrInventoryNotFound if any id is unknown, without
// calling fn; otherwise returns fn's error.
func (m *Manager) WithInventories(ids []string, fn func(invs []*Inventory) error) error {
	return m.lock(ids, true, fn)
}

// lock implements WithInventories. Read-only callers pass mutating=false so
// the version is left alone.
func (m *Manager) lock(ids []string, mutating bool, fn func(invs []*Inventory) error) error {
	for {
		m.mu.RLock()
		invs := make([]*Inventory, len(ids))
		byID := make(map[string]*entry, len(ids))
		for i, id := range ids {
			e, ok := m.entries[id]
			if !ok {
				m.mu.RUnlock()
				return fmt.Errorf("inventory: Manager.WithInventories: %q: %w", id, ErrInventoryNotFound)
			}
			invs[i] = e.inv
			byID[id] = e
		}
		m.mu.RUnlock()

		locked := slices.Sorted(maps.Keys(byID))
		dead := false
		for _, id := range locked {
			byID[id].mu.Lock()
			dead = dead || byID[id].dead
		}
		unlock := func() {
			for _, id := range locked {
				byID[id].mu.Unlock()
			}
		}
		// An entry replaced while we waited; look the ids up again.
		if dead {
			unlock()
			continue
		}

		if mutating {
			m.touch()
		}
		err := fn(invs)
		unlock()
		return err
	}
}

// with runs fn with exclusive access to a single inventory.
func (m *Manager) with(id string, fn func(inv *Inventory) error) error {
	return m.lock([]string{id}, true, func(invs []*Inventory) error {
		return fn(invs[0])
	})
}

// ViewInventory runs fn with exclusive access to the inventory id without
// advancing Version. fn must not modify the inventory or call back into the
// Manager.
//
// Postcondition: returns ErrInventoryNotFound for an unknown id.
func (m *Manager) ViewInventory(id string, fn func(inv *Inventory) error) error {
	return m.read(id, fn)
}

// read is with for callers that do not modify the inventory.
func (m *Manager) read(id string, fn func(inv *Inventory) error) error {
	return m.lock([]string{id}, false, func(invs []*Inventory) error {
		return fn(invs[0])
	})
}

// AddItem adds quantity units of itemID to the inventory invID and returns how
// many were placed.
func (m *Manager) AddItem(invID, itemID string, quantity int) (int, error) {
	var added int
	err := m.with(invID, func(inv *Inventory) error {
		var err error
		added, err = inv.AddItem(itemID, quantity)
		return err
	})
	return added, err
}

// RemoveItem removes up to quantity units of itemID from the inventory invID
// and returns how many were removed.
func (m *Manager) RemoveItem(invID, itemID string, quantity int) (int, error) {
	var removed int
	err := m.with(invID, func(inv *Inventory) error {
		var err error
		removed, err = inv.RemoveItem(itemID, quantity)
		return err
	})
	return removed, err
}

// TakeItem takes up to quantity units of itemID from the inventory invID and
// returns the exact IDs taken.
func (m *Manager) TakeItem(invID, itemID string, quantity int) (*Quantities, error) {
	taken := NewQuantities(m.items)
	err := m.with(invID, func(inv *Inventory) error {
		_, err := inv.TakeItem(itemID, quantity, taken)
		return err
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// HasCapacity reports whether q fits in full in the inventory invID.
func (m *Manager) HasCapacity(invID string, q *Quantities) (bool, error) {
	var ok bool
	err := m.read(invID, func(inv *Inventory) error {
		var err error
		ok, err = inv.HasCapacity(q)
		return err
	})
	return ok, err
}

// ItemsOf returns a snapshot of the items held by the inventory invID.
func (m *Manager) ItemsOf(invID string) (*Quantities, error) {
	var out *Quantities
	err := m.read(invID, func(inv *Inventory) error {
		out = inv.Items()
		return nil
	})
	return out, err
}

// SpareCapacity returns the summed spare capacity of the named inventories.
func (m *Manager) SpareCapacity(ids ...string) (Capacity, error) {
	total := NewCapacity(m.items, 0, nil)
	for _, id := range ids {
		err := m.read(id, func(inv *Inventory) error {
			total = total.Plus(inv.SpareCapacity())
			return nil
		})
		if err != nil {
			return Capacity{}, err
		}
	}
	return total, nil
}

// Transfer moves up to quantity units of itemID from the inventory from to
// the inventory to, preserving modified instances, and returns how many
// moved. Units that do not fit in the destination stay in the source.
//
// Postcondition: on error both inventories are unchanged; returns
// ErrInvalidOperation when from and to are the same inventory.
func (m *Manager) Transfer(from, to, itemID string, quantity int) (int, error) {
	if from == to {
		return 0, fmt.Errorf("inventory: Manager.Transfer: source and destination are both %q: %w", from, item.ErrInvalidOperation)
	}
	var moved int
	err := m.WithInventories([]string{from, to}, func(invs []*Inventory) error {
		src, dst := invs[0], invs[1]
		saved := src.Export()

		taken := NewQuantities(m.items)
		if _, err := src.TakeItem(itemID, quantity, taken); err != nil {
			return err
		}
		rest, err := dst.AddItems(taken)
		if err != nil {
			src.restore(saved)
			return err
		}
		if !rest.IsEmpty() {
			back, err := src.AddItems(rest)
			if err != nil {
				m.logger.Error("returning transfer remainder to source",
					zap.String("from", from),
					zap.Error(err),
				)
			} else if !back.IsEmpty() {
				m.logger.Error("transfer remainder did not fit back into source",
					zap.String("from", from),
					zap.Stringer("remainder", back),
				)
			}
		}
		moved = taken.Total() - rest.Total()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("inventory: Manager.Transfer: %w", err)
	}
	m.logger.Debug("items transferred",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("item_id", itemID),
		zap.Int("moved", moved),
	)
	return moved, nil
}

// Export returns a consistent snapshot of every inventory and the modified
// item registry.
func (m *Manager) Export() State {
	for {
		ids := m.IDs()
		var st State
		err := m.lock(ids, false, func(invs []*Inventory) error {
			st.Inventories = make([]InventoryState, 0, len(invs))
			for _, inv := range invs {
				st.Inventories = append(st.Inventories, inv.Export())
			}
			st.ModifiedItems = m.items.Export()
			return nil
		})
		// An inventory removed after IDs was read; take a fresh list.
		if err == nil {
			return st
		}
	}
}

// Import replaces the manager's contents with st. Every current inventory is
// locked for the duration, and callers still waiting on one of them retry
// against the imported set.
//
// Postcondition: on error the manager is unchanged. Returns
// ErrInvalidOperation when an inventory is malformed, an inventory ID
// repeats, or a modified instance is held more than once.
func (m *Manager) Import(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	retired := make([]*entry, 0, len(m.entries))
	for _, id := range slices.Sorted(maps.Keys(m.entries)) {
		e := m.entries[id]
		e.mu.Lock()
		retired = append(retired, e)
	}
	defer func() {
		for _, e := range retired {
			e.mu.Unlock()
		}
	}()

	previous := m.items.Export()
	if err := m.items.Import(st.ModifiedItems); err != nil {
		return fmt.Errorf("inventory: Manager.Import: %w", err)
	}
	fail := func(err error) error {
		// previous was exported from a valid registry and cannot fail to import.
		_ = m.items.Import(previous)
		return fmt.Errorf("inventory: Manager.Import: %w", err)
	}

	entries := make(map[string]*entry, len(st.Inventories))
	order := make([]string, 0, len(st.Inventories))
	holder := make(map[string]string)
	for _, is := range st.Inventories {
		if _, dup := entries[is.ID]; dup {
			return fail(fmt.Errorf("duplicate inventory %q: %w", is.ID, item.ErrInvalidOperation))
		}
		inv, err := ImportInventory(is, m.items)
		if err != nil {
			return fail(err)
		}
		for _, s := range is.Slots {
			for _, id := range s.InstanceIDs {
				if other, held := holder[id]; held {
					return fail(fmt.Errorf("modified item %q held by %q and %q: %w", id, other, is.ID, item.ErrInvalidOperation))
				}
				holder[id] = is.ID
			}
		}
		inv.held = m.held
		entries[is.ID] = &entry{inv: inv}
		order = append(order, is.ID)
	}

	for _, e := range retired {
		e.dead = true
	}
	m.held.reset(holder)
	m.entries = entries
	m.order = order

	m.touch()
	m.logger.Info("inventory state imported",
		zap.Int("inventories", len(order)),
		zap.Int("modified_items", len(st.ModifiedItems)),
	)
	return nil
}
