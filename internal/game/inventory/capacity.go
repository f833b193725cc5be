package inventory

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// Capacity is the interchange value for comparing inventory space with item
// requests. It counts free slots plus per-item headroom in partial stacks.
//
//	inv := NewInventory("", 3, res)
//	inv.AddItem(sword, 1)
//	inv.AddItem(potion, 8)
//	inv.SpareCapacity()           // 1 slot, potion: 2
//
// Capacities of several inventories can be summed and tested as one:
//
//	a.SpareCapacity().Plus(b.SpareCapacity()).Fits(items)
type Capacity struct {
	res      Resolver
	slots    int
	headroom map[string]int
}

// NewCapacity returns a Capacity of slots free slots and the given stackable
// headroom keyed by static item ID.
func NewCapacity(res Resolver, slots int, headroom map[string]int) Capacity {
	h := make(map[string]int, len(headroom))
	for id, n := range headroom {
		if n > 0 {
			h[id] = n
		}
	}
	return Capacity{res: res, slots: slots, headroom: h}
}

// Slots returns the number of free slots.
func (c Capacity) Slots() int { return c.slots }

// Headroom returns the spare units for id in partially filled stacks.
func (c Capacity) Headroom(id string) int { return c.headroom[id] }

// HeadroomIDs returns the IDs with headroom, sorted.
func (c Capacity) HeadroomIDs() []string {
	return slices.Sorted(maps.Keys(c.headroom))
}

// Fits reports whether q can be placed within c. Headroom for an item is
// consumed first and the remainder needs whole slots. IDs that cannot be
// resolved never fit.
func (c Capacity) Fits(q *Quantities) bool {
	demands, err := aggregate(c.res, q)
	if err != nil {
		return false
	}
	spare := c.slots
	for _, d := range demands {
		remaining := d.units - c.headroom[d.baseID]
		if remaining > 0 {
			spare -= ceilDiv(remaining, d.def.MaxStack)
		}
		if spare < 0 {
			return false
		}
	}
	return true
}

// Plus returns the sum of c and o: slots add and headroom merges additively.
func (c Capacity) Plus(o Capacity) Capacity {
	out := NewCapacity(c.resolver(o), c.slots+o.slots, c.headroom)
	for id, n := range o.headroom {
		out.headroom[id] += n
	}
	return out
}

// Minus returns c with the space described by o consumed. Headroom that o
// needs beyond what c has is taken from whole free slots, leaving the unused
// part of the last slot as headroom.
//
//	(1 slot, potion: 8) - (potion: 3) = (1 slot, potion: 5)
//	(1 slot, potion: 8) - (gold: 3)   = (0 slots, potion: 8, gold: 7)
//
// Postcondition: returns ErrUnderflow if the free slots would go negative.
func (c Capacity) Minus(o Capacity) (Capacity, error) {
	res := c.resolver(o)
	slots := c.slots - o.slots
	if slots < 0 {
		return Capacity{}, fmt.Errorf("inventory: Capacity.Minus: need %d slots, have %d: %w", o.slots, c.slots, ErrUnderflow)
	}
	out := NewCapacity(res, 0, c.headroom)
	for _, id := range o.HeadroomIDs() {
		need := o.headroom[id] - out.headroom[id]
		if need <= 0 {
			out.headroom[id] = -need
			if need == 0 {
				delete(out.headroom, id)
			}
			continue
		}
		delete(out.headroom, id)
		d, err := res.Def(id)
		if err != nil {
			return Capacity{}, fmt.Errorf("inventory: Capacity.Minus: %w", err)
		}
		slots -= need / d.MaxStack
		if rem := need % d.MaxStack; rem > 0 {
			slots--
			out.headroom[id] = d.MaxStack - rem
		}
		if slots < 0 {
			return Capacity{}, fmt.Errorf("inventory: Capacity.Minus: insufficient slots for %q: %w", id, ErrUnderflow)
		}
	}
	out.slots = slots
	return out, nil
}

// Equal reports whether c and o describe the same space.
func (c Capacity) Equal(o Capacity) bool {
	return c.slots == o.slots && maps.Equal(c.headroom, o.headroom)
}

// String formats c for logs and test failures.
func (c Capacity) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Capacity{slots: %d", c.slots)
	for _, id := range c.HeadroomIDs() {
		fmt.Fprintf(&b, ", %s: %d", id, c.headroom[id])
	}
	b.WriteString("}")
	return b.String()
}

func (c Capacity) resolver(o Capacity) Resolver {
	if c.res != nil {
		return c.res
	}
	return o.res
}

// demand is the aggregated request for one static item: plain units plus the
// modified instances folded onto it.
type demand struct {
	baseID    string
	def       *item.Def
	units     int
	instances []string
}

// aggregate folds q onto static item IDs, preserving q's iteration order by
// first appearance of each base.
func aggregate(res Resolver, q *Quantities) ([]*demand, error) {
	var out []*demand
	byBase := make(map[string]*demand)
	var err error
	q.Each(func(id string, n int) {
		if err != nil {
			return
		}
		d, derr := res.Def(id)
		if derr != nil {
			err = derr
			return
		}
		modified := res.IsModified(id)
		if modified && n > 1 {
			err = fmt.Errorf("modified item %q requested %d times: %w", id, n, item.ErrInvalidOperation)
			return
		}
		dm, ok := byBase[d.ID]
		if !ok {
			dm = &demand{baseID: d.ID, def: d}
			byBase[d.ID] = dm
			out = append(out, dm)
		}
		dm.units += n
		if modified {
			dm.instances = append(dm.instances, id)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
