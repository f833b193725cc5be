package inventory

import (
	"fmt"
	"slices"
	"sort"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// counts is an insertion-ordered map of item ID to positive quantity.
type counts struct {
	order  []string
	values map[string]int
}

func (c *counts) get(id string) int {
	return c.values[id]
}

func (c *counts) set(id string, q int) {
	if q <= 0 {
		c.remove(id)
		return
	}
	if c.values == nil {
		c.values = make(map[string]int)
	}
	if _, ok := c.values[id]; !ok {
		c.order = append(c.order, id)
	}
	c.values[id] = q
}

func (c *counts) remove(id string) bool {
	if _, ok := c.values[id]; !ok {
		return false
	}
	delete(c.values, id)
	c.order = slices.DeleteFunc(c.order, func(o string) bool { return o == id })
	return true
}

func (c *counts) total() int {
	n := 0
	for _, v := range c.values {
		n += v
	}
	return n
}

func (c *counts) clone() counts {
	out := counts{order: slices.Clone(c.order), values: make(map[string]int, len(c.values))}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// Quantities maps item IDs, static or modified, to positive quantities. It is
// used both as a request (what must be placed) and as a result (what was
// retrieved). Entries are partitioned into non-stackable and stackable buckets
// and iterate in that order, insertion order within each bucket.
type Quantities struct {
	res          Resolver
	nonStackable counts
	stackable    counts
}

// NewQuantities returns an empty Quantities resolving IDs through res.
//
// Precondition: res must be non-nil.
func NewQuantities(res Resolver) *Quantities {
	return &Quantities{res: res}
}

// QuantitiesOf builds a Quantities from m, inserting IDs in sorted order so
// the result is deterministic.
//
// Postcondition: returns ErrNotFound if any ID cannot be resolved.
func QuantitiesOf(res Resolver, m map[string]int) (*Quantities, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	q := NewQuantities(res)
	for _, id := range ids {
		if err := q.Set(id, m[id]); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (q *Quantities) bucket(stackable bool) *counts {
	if stackable {
		return &q.stackable
	}
	return &q.nonStackable
}

func (q *Quantities) classify(id string) (bool, error) {
	if q.stackable.get(id) > 0 {
		return true, nil
	}
	if q.nonStackable.get(id) > 0 {
		return false, nil
	}
	d, err := q.res.Def(id)
	if err != nil {
		return false, err
	}
	return d.IsStackable(), nil
}

// Set sets the quantity of id. A quantity of 0 removes the entry.
//
// Postcondition: returns ErrNotFound if id cannot be resolved, or
// ErrInvalidOperation if quantity is negative.
func (q *Quantities) Set(id string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("inventory: Quantities.Set: negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	stackable, err := q.classify(id)
	if err != nil {
		return fmt.Errorf("inventory: Quantities.Set: %w", err)
	}
	q.bucket(stackable).set(id, quantity)
	return nil
}

// Add increments the quantity of id.
//
// Postcondition: returns ErrNotFound if id cannot be resolved, or
// ErrInvalidOperation if quantity is negative.
func (q *Quantities) Add(id string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("inventory: Quantities.Add: negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	stackable, err := q.classify(id)
	if err != nil {
		return fmt.Errorf("inventory: Quantities.Add: %w", err)
	}
	q.addKnown(id, quantity, stackable)
	return nil
}

// addKnown increments id without resolving it.
func (q *Quantities) addKnown(id string, quantity int, stackable bool) {
	if quantity <= 0 {
		return
	}
	b := q.bucket(stackable)
	b.set(id, b.get(id)+quantity)
}

// Decrement reduces the quantity of id, removing the entry at zero. IDs are
// used exactly as given; modified IDs are not folded onto their base.
//
// Postcondition: returns ErrUnderflow if more than the held quantity is
// decremented, leaving q unchanged; ErrInvalidOperation if quantity is negative.
func (q *Quantities) Decrement(id string, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("inventory: Quantities.Decrement: negative quantity %d for %q: %w", quantity, id, item.ErrInvalidOperation)
	}
	current := q.Get(id)
	if quantity > current {
		return fmt.Errorf("inventory: Quantities.Decrement: %q has %d, cannot decrement %d: %w", id, current, quantity, ErrUnderflow)
	}
	if current == 0 {
		return nil
	}
	stackable := q.stackable.get(id) > 0
	q.bucket(stackable).set(id, current-quantity)
	return nil
}

// Get returns the quantity of id, or 0 when absent.
func (q *Quantities) Get(id string) int {
	if v := q.nonStackable.get(id); v > 0 {
		return v
	}
	return q.stackable.get(id)
}

// Has reports whether id has a positive quantity.
func (q *Quantities) Has(id string) bool {
	return q.Get(id) > 0
}

// Remove deletes id and reports whether it was present.
func (q *Quantities) Remove(id string) bool {
	return q.nonStackable.remove(id) || q.stackable.remove(id)
}

// Len returns the number of distinct IDs.
func (q *Quantities) Len() int {
	return len(q.nonStackable.order) + len(q.stackable.order)
}

// Total returns the sum of all quantities.
func (q *Quantities) Total() int {
	return q.nonStackable.total() + q.stackable.total()
}

// IsEmpty reports whether q holds no entries.
func (q *Quantities) IsEmpty() bool {
	return q.Len() == 0
}

// Each calls fn for every entry, non-stackable entries first.
func (q *Quantities) Each(fn func(id string, quantity int)) {
	for _, id := range q.nonStackable.order {
		fn(id, q.nonStackable.values[id])
	}
	for _, id := range q.stackable.order {
		fn(id, q.stackable.values[id])
	}
}

// IDs returns all IDs in iteration order.
func (q *Quantities) IDs() []string {
	out := make([]string, 0, q.Len())
	q.Each(func(id string, _ int) { out = append(out, id) })
	return out
}

// Map returns the entries as a plain map.
func (q *Quantities) Map() map[string]int {
	out := make(map[string]int, q.Len())
	q.Each(func(id string, n int) { out[id] = n })
	return out
}

// Clone returns an independent copy of q.
func (q *Quantities) Clone() *Quantities {
	return &Quantities{
		res:          q.res,
		nonStackable: q.nonStackable.clone(),
		stackable:    q.stackable.clone(),
	}
}

// Plus returns the entry-wise sum of q and o.
func (q *Quantities) Plus(o *Quantities) *Quantities {
	out := q.Clone()
	for _, id := range o.nonStackable.order {
		out.addKnown(id, o.nonStackable.values[id], false)
	}
	for _, id := range o.stackable.order {
		out.addKnown(id, o.stackable.values[id], true)
	}
	return out
}

// Minus returns the entry-wise difference q - o. Entries reaching zero are
// dropped.
//
// Postcondition: returns ErrUnderflow if o holds more of any ID than q.
func (q *Quantities) Minus(o *Quantities) (*Quantities, error) {
	out := q.Clone()
	var err error
	o.Each(func(id string, n int) {
		if err != nil {
			return
		}
		err = out.Decrement(id, n)
	})
	if err != nil {
		return nil, fmt.Errorf("inventory: Quantities.Minus: %w", err)
	}
	return out, nil
}

// RequiredCapacity returns the capacity needed to place q into empty space:
// one slot per non-stackable unit plus stackable quantities folded onto their
// base IDs.
func (q *Quantities) RequiredCapacity() Capacity {
	headroom := make(map[string]int, len(q.stackable.order))
	for _, id := range q.stackable.order {
		base := id
		if d, err := q.res.Def(id); err == nil {
			base = d.ID
		}
		headroom[base] += q.stackable.values[id]
	}
	return Capacity{res: q.res, slots: q.nonStackable.total(), headroom: headroom}
}

// String formats q for logs and test failures.
func (q *Quantities) String() string {
	s := "Quantities{"
	first := true
	q.Each(func(id string, n int) {
		if !first {
			s += ", "
		}
		first = false
		s += fmt.Sprintf("%s: %d", id, n)
	})
	return s + "}"
}
