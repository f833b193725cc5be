package inventory

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// Inventory is an ordered, fixed-length sequence of slots.
//
// Additions fill from the front of the inventory and removals drain from the
// back, so the two do not churn the same slots.
type Inventory struct {
	id    string
	res   Resolver
	slots []Slot
	held  *holders // shared across a Manager's inventories; nil when standalone
}

// NewInventory creates an empty Inventory with size slots. An empty id is
// replaced by a generated UUID.
//
// Precondition: size >= 0; res must be non-nil.
// Postcondition: NumSlots() == size and every slot is empty.
func NewInventory(id string, size int, res Resolver) *Inventory {
	if id == "" {
		id = uuid.New().String()
	}
	return &Inventory{
		id:    id,
		res:   res,
		slots: make([]Slot, size),
	}
}

// ID returns the inventory's stable identifier.
func (inv *Inventory) ID() string { return inv.id }

// NumSlots returns the fixed number of slots.
func (inv *Inventory) NumSlots() int { return len(inv.slots) }

// Slot returns a copy of slot i.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) Slot(i int) Slot { return inv.slots[i].clone() }

// IsEmpty reports whether slot i is empty.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) IsEmpty(i int) bool { return inv.slots[i].IsEmpty() }

// StackSize returns the quantity held in slot i.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) StackSize(i int) int { return inv.slots[i].quantity }

// MaxStackSize returns the maximum stack size of the item in slot i, or 0 when
// the slot is empty.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) MaxStackSize(i int) int {
	if inv.slots[i].IsEmpty() {
		return 0
	}
	d, err := inv.res.Def(inv.slots[i].itemID)
	if err != nil {
		return 0
	}
	return d.MaxStack
}

// IsFull reports whether slot i holds a full stack.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) IsFull(i int) bool {
	return !inv.slots[i].IsEmpty() && inv.slots[i].quantity >= inv.MaxStackSize(i)
}

// placement tracks the units of one static item still to be placed.
// Modified instances are attached to receiving slots first, consumed from
// the tail of the queue.
type placement struct {
	def       *item.Def
	remaining int
	instances []string
}

func newPlacement(d *demand) *placement {
	return &placement{def: d.def, remaining: d.units, instances: slices.Clone(d.instances)}
}

func (inv *Inventory) put(s *Slot, p *placement, n int) {
	k := min(n, len(p.instances))
	attached := p.instances[len(p.instances)-k:]
	p.instances = p.instances[:len(p.instances)-k]
	s.place(p.def.ID, n, attached)
	p.remaining -= n
}

// fillPartial tops up existing stacks of the item, front to back.
func (inv *Inventory) fillPartial(p *placement) {
	for i := range inv.slots {
		if p.remaining == 0 {
			return
		}
		s := &inv.slots[i]
		if s.IsEmpty() || s.itemID != p.def.ID {
			continue
		}
		if room := p.def.MaxStack - s.quantity; room > 0 {
			inv.put(s, p, min(room, p.remaining))
		}
	}
}

// fillEmpty starts new stacks in empty slots, front to back.
func (inv *Inventory) fillEmpty(p *placement) {
	for i := range inv.slots {
		if p.remaining == 0 {
			return
		}
		s := &inv.slots[i]
		if !s.IsEmpty() {
			continue
		}
		inv.put(s, p, min(p.def.MaxStack, p.remaining))
	}
}

// checkNotHeld rejects modified instances that are already in this inventory
// or, under a Manager, in any other.
func (inv *Inventory) checkNotHeld(demands []*demand) error {
	for _, d := range demands {
		for _, id := range d.instances {
			if inv.FindItem(id, 0) >= 0 {
				return fmt.Errorf("modified item %q already held in inventory %q: %w", id, inv.id, item.ErrInvalidOperation)
			}
			if inv.held == nil {
				continue
			}
			if other, ok := inv.held.heldElsewhere(inv.id, id); ok {
				return fmt.Errorf("modified item %q already held in inventory %q: %w", id, other, item.ErrInvalidOperation)
			}
		}
	}
	return nil
}

// claim records the instances in demands as held by inv.
func (inv *Inventory) claim(demands []*demand) error {
	if inv.held == nil {
		return nil
	}
	var ids []string
	for _, d := range demands {
		ids = append(ids, d.instances...)
	}
	return inv.held.claim(inv.id, ids, inv.res.IsModified)
}

// release forgets instances that left inv.
func (inv *Inventory) release(ids []string) {
	if inv.held != nil {
		inv.held.release(inv.id, ids)
	}
}

// instanceIDs returns every modified instance riding in inv.
func (inv *Inventory) instanceIDs() []string {
	var ids []string
	for i := range inv.slots {
		ids = append(ids, inv.slots[i].instanceIDs...)
	}
	return ids
}

func (inv *Inventory) request(id string, quantity int) (*Quantities, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	q := NewQuantities(inv.res)
	if err := q.Set(id, quantity); err != nil {
		return nil, err
	}
	return q, nil
}

// AddItem places up to quantity units of id and returns how many were placed.
// Existing stacks are topped up front to back before new stacks are started
// in empty slots. A modified item ID places its unique instance.
//
// Postcondition: returns ErrNotFound for an unknown id, or ErrInvalidOperation
// when quantity is negative or a modified id is added more than once. A
// result below quantity means the inventory ran out of space.
func (inv *Inventory) AddItem(id string, quantity int) (int, error) {
	q, err := inv.request(id, quantity)
	if err != nil {
		return 0, fmt.Errorf("inventory: AddItem: %w", err)
	}
	if q.IsEmpty() {
		return 0, nil
	}
	rem, err := inv.AddItems(q)
	if err != nil {
		return 0, fmt.Errorf("inventory: AddItem: %w", err)
	}
	return quantity - rem.Total(), nil
}

// AddItems places as much of q as fits and returns what could not be placed.
// Non-stackable items take empty slots first; stackable items then top up
// existing stacks and finally start new stacks in the remaining empty slots.
// Unplaced modified instances are reported under their own IDs.
//
// Postcondition: on error the inventory is unchanged; an empty remainder
// means q was placed in full.
func (inv *Inventory) AddItems(q *Quantities) (*Quantities, error) {
	demands, err := aggregate(inv.res, q)
	if err != nil {
		return nil, fmt.Errorf("inventory: AddItems: %w", err)
	}
	if err := inv.checkNotHeld(demands); err != nil {
		return nil, fmt.Errorf("inventory: AddItems: %w", err)
	}
	if err := inv.claim(demands); err != nil {
		return nil, fmt.Errorf("inventory: AddItems: %w", err)
	}

	placements := make([]*placement, len(demands))
	for i, d := range demands {
		placements[i] = newPlacement(d)
	}
	for _, p := range placements {
		if !p.def.IsStackable() {
			inv.fillEmpty(p)
		}
	}
	for _, p := range placements {
		if p.def.IsStackable() {
			inv.fillPartial(p)
		}
	}
	for _, p := range placements {
		if p.def.IsStackable() {
			inv.fillEmpty(p)
		}
	}

	remainder := NewQuantities(inv.res)
	for _, p := range placements {
		if p.remaining == 0 {
			continue
		}
		stackable := p.def.IsStackable()
		for _, id := range p.instances {
			remainder.addKnown(id, 1, stackable)
		}
		inv.release(p.instances)
		remainder.addKnown(p.def.ID, p.remaining-len(p.instances), stackable)
	}
	return remainder, nil
}

// RemoveItem removes up to quantity units of id, scanning from the last slot
// towards the first, and returns how many were removed. For a static id,
// modified instances at the top of a stack are removed before plain units.
// A modified id removes exactly that instance.
//
// Postcondition: returns ErrNotFound for an unknown id, or ErrInvalidOperation
// when quantity is negative or a modified id is removed more than once.
func (inv *Inventory) RemoveItem(id string, quantity int) (int, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("inventory: RemoveItem: negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	if inv.res.IsModified(id) {
		if quantity > 1 {
			return 0, fmt.Errorf("inventory: RemoveItem: cannot remove %d of modified item %q: %w", quantity, id, item.ErrInvalidOperation)
		}
		if quantity == 0 {
			return 0, nil
		}
		for i := len(inv.slots) - 1; i >= 0; i-- {
			if inv.slots[i].removeInstance(id) {
				inv.release([]string{id})
				return 1, nil
			}
		}
		return 0, nil
	}
	if _, err := inv.res.Def(id); err != nil {
		return 0, fmt.Errorf("inventory: RemoveItem: %w", err)
	}

	remaining := quantity
	for i := len(inv.slots) - 1; i >= 0 && remaining > 0; i-- {
		s := &inv.slots[i]
		if s.IsEmpty() || s.itemID != id {
			continue
		}
		n := min(remaining, s.quantity)
		inv.release(s.take(n))
		remaining -= n
	}
	return quantity - remaining, nil
}

// TakeItem removes up to quantity units of id and records the exact IDs
// removed in into, so instances can be moved intact to another inventory. It
// returns the quantity that could not be taken.
//
// Slots carrying more modified instances are drained first, then smaller
// stacks before larger ones. A static id may consume modified instances
// riding on its stacks; a modified id consumes only that instance.
//
// Precondition: into may be nil when the taken IDs are not needed.
// Postcondition: returns ErrNotFound for an unknown id, or ErrInvalidOperation
// when quantity is negative or a modified id is taken more than once.
func (inv *Inventory) TakeItem(id string, quantity int, into *Quantities) (int, error) {
	return inv.take(id, quantity, into, false)
}

// TakePlainItem is TakeItem restricted to unmodified units: instances riding
// on matching stacks are left in place.
func (inv *Inventory) TakePlainItem(id string, quantity int, into *Quantities) (int, error) {
	return inv.take(id, quantity, into, true)
}

// TakeOne takes a single unit of id and returns the exact ID taken, which is
// a modified instance ID when one was on top of the chosen stack.
//
// Postcondition: ok is false when no unit of id is held.
func (inv *Inventory) TakeOne(id string) (taken string, ok bool, err error) {
	into := NewQuantities(inv.res)
	notTaken, err := inv.TakeItem(id, 1, into)
	if err != nil || notTaken > 0 {
		return "", false, err
	}
	return into.IDs()[0], true, nil
}

func (inv *Inventory) take(id string, quantity int, into *Quantities, plainOnly bool) (int, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("inventory: TakeItem: negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	if into == nil {
		into = NewQuantities(inv.res)
	}
	d, err := inv.res.Def(id)
	if err != nil {
		return 0, fmt.Errorf("inventory: TakeItem: %w", err)
	}
	stackable := d.IsStackable()

	if inv.res.IsModified(id) {
		if quantity > 1 {
			return 0, fmt.Errorf("inventory: TakeItem: cannot take %d of modified item %q: %w", quantity, id, item.ErrInvalidOperation)
		}
		if quantity == 0 || plainOnly {
			return quantity, nil
		}
		for i := len(inv.slots) - 1; i >= 0; i-- {
			if inv.slots[i].removeInstance(id) {
				inv.release([]string{id})
				into.addKnown(id, 1, stackable)
				return 0, nil
			}
		}
		return quantity, nil
	}

	var candidates []int
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.IsEmpty() || s.itemID != id || (plainOnly && s.plainCount() == 0) {
			continue
		}
		candidates = append(candidates, i)
	}
	slices.SortStableFunc(candidates, func(a, b int) int {
		sa, sb := &inv.slots[a], &inv.slots[b]
		if c := cmp.Compare(len(sb.instanceIDs), len(sa.instanceIDs)); c != 0 {
			return c
		}
		if c := cmp.Compare(sa.quantity, sb.quantity); c != 0 {
			return c
		}
		return cmp.Compare(b, a)
	})

	remaining := quantity
	for _, i := range candidates {
		if remaining == 0 {
			break
		}
		s := &inv.slots[i]
		if plainOnly {
			n := min(remaining, s.plainCount())
			s.takePlain(n)
			into.addKnown(id, n, stackable)
			remaining -= n
			continue
		}
		n := min(remaining, s.quantity)
		instances := s.take(n)
		inv.release(instances)
		for _, inst := range instances {
			into.addKnown(inst, 1, stackable)
		}
		into.addKnown(id, n-len(instances), stackable)
		remaining -= n
	}
	return remaining, nil
}

// HasCapacity reports whether q can be placed in full without mutating the
// inventory. It follows the same plan as AddItems, so a true result
// guarantees AddItems(q) returns an empty remainder.
//
// Postcondition: returns ErrNotFound or ErrInvalidOperation for requests
// AddItems would reject.
func (inv *Inventory) HasCapacity(q *Quantities) (bool, error) {
	demands, err := aggregate(inv.res, q)
	if err != nil {
		return false, fmt.Errorf("inventory: HasCapacity: %w", err)
	}
	if err := inv.checkNotHeld(demands); err != nil {
		return false, fmt.Errorf("inventory: HasCapacity: %w", err)
	}

	nonStackable := 0
	stackable := make(map[string]*demand)
	remaining := make(map[string]int)
	for _, d := range demands {
		if d.def.IsStackable() {
			stackable[d.baseID] = d
			remaining[d.baseID] = d.units
		} else {
			nonStackable += d.units
		}
	}

	free := 0
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.IsEmpty() {
			if nonStackable > 0 {
				nonStackable--
			} else {
				free++
			}
			continue
		}
		d, ok := stackable[s.itemID]
		if !ok || remaining[s.itemID] == 0 {
			continue
		}
		if room := d.def.MaxStack - s.quantity; room > 0 {
			remaining[s.itemID] -= min(room, remaining[s.itemID])
		}
	}
	if nonStackable > 0 {
		return false, nil
	}

	required := 0
	for base, n := range remaining {
		if n > 0 {
			required += ceilDiv(n, stackable[base].def.MaxStack)
		}
	}
	return free >= required, nil
}

// HasCapacityFor reports whether quantity units of id can be placed in full.
func (inv *Inventory) HasCapacityFor(id string, quantity int) (bool, error) {
	q, err := inv.request(id, quantity)
	if err != nil {
		return false, fmt.Errorf("inventory: HasCapacityFor: %w", err)
	}
	return inv.HasCapacity(q)
}

// SpareCapacity returns the free slots and partial-stack headroom of the
// inventory.
func (inv *Inventory) SpareCapacity() Capacity {
	c := NewCapacity(inv.res, 0, nil)
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.IsEmpty() {
			c.slots++
			continue
		}
		d, err := inv.res.Def(s.itemID)
		if err != nil || !d.IsStackable() {
			continue
		}
		if room := d.MaxStack - s.quantity; room > 0 {
			c.headroom[s.itemID] += room
		}
	}
	return c
}

// FindItem returns the index of the first slot at or after start holding
// exactly id, or -1.
func (inv *Inventory) FindItem(id string, start int) int {
	for i := max(start, 0); i < len(inv.slots); i++ {
		if inv.slots[i].HasExactItem(id) {
			return i
		}
	}
	return -1
}

// count returns the units held of id: the instance itself for a modified id,
// every unit of matching stacks for a static id.
func (inv *Inventory) count(id string) int {
	n := 0
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.IsEmpty() {
			continue
		}
		if s.itemID == id {
			n += s.quantity
		} else if slices.Contains(s.instanceIDs, id) {
			n++
		}
	}
	return n
}

// HasItem reports whether at least quantity units of id are held.
func (inv *Inventory) HasItem(id string, quantity int) bool {
	return inv.count(id) >= quantity
}

// HasItems reports whether every entry of q is held. Modified instances must
// be held exactly, and also count towards their static item so a request
// for both cannot be satisfied by the same unit.
func (inv *Inventory) HasItems(q *Quantities) bool {
	need := make(map[string]int)
	ok := true
	q.Each(func(id string, n int) {
		if !ok {
			return
		}
		if inv.res.IsModified(id) {
			d, err := inv.res.Def(id)
			if err != nil || inv.count(id) < n {
				ok = false
				return
			}
			need[d.ID] += n
			return
		}
		need[id] += n
	})
	if !ok {
		return false
	}
	for id, n := range need {
		if inv.count(id) < n {
			return false
		}
	}
	return true
}

// Items returns a snapshot of the held quantities keyed by exact ID: modified
// instances individually and the plain remainder of each stack under its
// static ID.
func (inv *Inventory) Items() *Quantities {
	out := NewQuantities(inv.res)
	for i := range inv.slots {
		s := &inv.slots[i]
		if s.IsEmpty() {
			continue
		}
		stackable := s.quantity > 1
		if d, err := inv.res.Def(s.itemID); err == nil {
			stackable = d.IsStackable()
		}
		for _, id := range s.instanceIDs {
			out.addKnown(id, 1, stackable)
		}
		out.addKnown(s.itemID, s.plainCount(), stackable)
	}
	return out
}

// Clear empties every slot.
//
// Postcondition: IsEmpty(i) for every slot.
func (inv *Inventory) Clear() {
	inv.release(inv.instanceIDs())
	for i := range inv.slots {
		inv.slots[i].Clear()
	}
}

// SlotStatistic returns the combined value of stat over the units in slot i:
// the base value for each plain unit plus each instance's effective value.
//
// Precondition: 0 <= i < NumSlots().
func (inv *Inventory) SlotStatistic(i int, stat item.Statistic) (int, error) {
	s := &inv.slots[i]
	if s.IsEmpty() {
		return 0, nil
	}
	base, err := inv.res.StatValue(s.itemID, stat)
	if err != nil {
		return 0, fmt.Errorf("inventory: SlotStatistic: %w", err)
	}
	value := base * s.plainCount()
	for _, id := range s.instanceIDs {
		v, err := inv.res.StatValue(id, stat)
		if err != nil {
			return 0, fmt.Errorf("inventory: SlotStatistic: %w", err)
		}
		value += v
	}
	return value, nil
}

// AggregateStatistic sums SlotStatistic over every slot.
func (inv *Inventory) AggregateStatistic(stat item.Statistic) (int, error) {
	total := 0
	for i := range inv.slots {
		v, err := inv.SlotStatistic(i, stat)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// AggregateStatistics sums each of stats over every slot.
func (inv *Inventory) AggregateStatistics(stats []item.Statistic) (map[item.Statistic]int, error) {
	out := make(map[item.Statistic]int, len(stats))
	for _, stat := range stats {
		v, err := inv.AggregateStatistic(stat)
		if err != nil {
			return nil, err
		}
		out[stat] = v
	}
	return out, nil
}

// CheckConsistency verifies every slot's invariants: quantity 0 iff no item,
// quantity within the item's stack limit, at most quantity riding instances,
// and every instance resolving to the slot's item and appearing only once.
func (inv *Inventory) CheckConsistency() error {
	seen := make(map[string]int)
	for i := range inv.slots {
		s := &inv.slots[i]
		if (s.quantity == 0) != (s.itemID == "") || s.quantity < 0 {
			return fmt.Errorf("inventory %q slot %d: quantity %d with item %q", inv.id, i, s.quantity, s.itemID)
		}
		if s.IsEmpty() {
			if len(s.instanceIDs) > 0 {
				return fmt.Errorf("inventory %q slot %d: empty slot carries instances", inv.id, i)
			}
			continue
		}
		d, err := inv.res.Def(s.itemID)
		if err != nil {
			return fmt.Errorf("inventory %q slot %d: %w", inv.id, i, err)
		}
		if s.quantity > d.MaxStack {
			return fmt.Errorf("inventory %q slot %d: quantity %d exceeds max stack %d of %q", inv.id, i, s.quantity, d.MaxStack, s.itemID)
		}
		if len(s.instanceIDs) > s.quantity {
			return fmt.Errorf("inventory %q slot %d: %d instances in quantity %d", inv.id, i, len(s.instanceIDs), s.quantity)
		}
		for _, id := range s.instanceIDs {
			if j, dup := seen[id]; dup {
				return fmt.Errorf("inventory %q: instance %q in slots %d and %d", inv.id, id, j, i)
			}
			seen[id] = i
			if !inv.res.IsModified(id) {
				return fmt.Errorf("inventory %q slot %d: instance %q is not a modified item", inv.id, i, id)
			}
			inst, err := inv.res.Def(id)
			if err != nil {
				return fmt.Errorf("inventory %q slot %d: %w", inv.id, i, err)
			}
			if inst.ID != s.itemID {
				return fmt.Errorf("inventory %q slot %d: instance %q of %q in stack of %q", inv.id, i, id, inst.ID, s.itemID)
			}
		}
	}
	return nil
}
