package inventory

import "slices"

// Slot is a single storage cell holding one stack of a static item. Modified
// instances riding in the stack are listed in InstanceIDs and count towards
// Quantity; the most recently added instance is the top of the stack.
//
// Invariant: Quantity() == 0 iff ItemID() == "", and len(InstanceIDs()) <= Quantity().
type Slot struct {
	itemID      string
	quantity    int
	instanceIDs []string
}

// ItemID returns the static item ID of the stack, or "" when empty.
func (s Slot) ItemID() string { return s.itemID }

// Quantity returns the number of units in the stack.
func (s Slot) Quantity() int { return s.quantity }

// InstanceIDs returns a copy of the modified instance IDs in the stack,
// bottom first.
func (s Slot) InstanceIDs() []string { return slices.Clone(s.instanceIDs) }

// IsEmpty reports whether the slot holds nothing.
func (s Slot) IsEmpty() bool { return s.quantity == 0 }

// HasModifiedItem reports whether any modified instance rides in the stack.
func (s Slot) HasModifiedItem() bool { return len(s.instanceIDs) > 0 }

// HasExactItem reports whether id is the stack's static ID or one of its
// riding instance IDs.
func (s Slot) HasExactItem(id string) bool {
	if id == "" || s.IsEmpty() {
		return false
	}
	return s.itemID == id || slices.Contains(s.instanceIDs, id)
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.itemID = ""
	s.quantity = 0
	s.instanceIDs = nil
}

func (s *Slot) plainCount() int {
	return s.quantity - len(s.instanceIDs)
}

// place adds n units of itemID, of which instances are modified.
func (s *Slot) place(itemID string, n int, instances []string) {
	s.itemID = itemID
	s.quantity += n
	s.instanceIDs = append(s.instanceIDs, instances...)
}

// take removes n units, top of stack first, and returns the instance IDs
// removed in removal order.
func (s *Slot) take(n int) []string {
	k := min(n, len(s.instanceIDs))
	taken := make([]string, 0, k)
	for i := 0; i < k; i++ {
		last := len(s.instanceIDs) - 1
		taken = append(taken, s.instanceIDs[last])
		s.instanceIDs = s.instanceIDs[:last]
	}
	s.setQuantity(s.quantity - n)
	return taken
}

// takePlain removes n unmodified units, leaving riding instances in place.
func (s *Slot) takePlain(n int) {
	s.setQuantity(s.quantity - n)
}

// removeInstance removes the riding instance id.
func (s *Slot) removeInstance(id string) bool {
	i := slices.Index(s.instanceIDs, id)
	if i < 0 {
		return false
	}
	s.instanceIDs = slices.Delete(s.instanceIDs, i, i+1)
	s.setQuantity(s.quantity - 1)
	return true
}

func (s *Slot) setQuantity(q int) {
	s.quantity = q
	if s.quantity <= 0 {
		s.Clear()
	}
}

func (s *Slot) clone() Slot {
	out := Slot{itemID: s.itemID, quantity: s.quantity}
	if len(s.instanceIDs) > 0 {
		out.instanceIDs = slices.Clone(s.instanceIDs)
	}
	return out
}
