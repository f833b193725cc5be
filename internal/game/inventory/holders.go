package inventory

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// holders indexes which inventory holds each modified instance, so one
// instance cannot sit in two inventories of the same Manager.
type holders struct {
	mu sync.Mutex
	by map[string]string // instance id → inventory id
}

func newHolders() *holders {
	return &holders{by: make(map[string]string)}
}

// heldElsewhere returns the inventory other than invID holding id, if any.
func (h *holders) heldElsewhere(invID, id string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	other, ok := h.by[id]
	if !ok || other == invID {
		return "", false
	}
	return other, true
}

// claim records invID as the holder of ids. Nothing is recorded when any id
// is held by another inventory or is no longer a modified item.
func (h *holders) claim(invID string, ids []string, valid func(id string) bool) error {
	if len(ids) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if other, ok := h.by[id]; ok && other != invID {
			return fmt.Errorf("modified item %q already held in inventory %q: %w", id, other, item.ErrInvalidOperation)
		}
		if !valid(id) {
			return fmt.Errorf("modified item %q: %w", id, item.ErrNotFound)
		}
	}
	for _, id := range ids {
		h.by[id] = invID
	}
	return nil
}

// assign records invID as the holder of ids unconditionally.
func (h *holders) assign(invID string, ids []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		h.by[id] = invID
	}
}

// release forgets ids held by invID.
func (h *holders) release(invID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range ids {
		if h.by[id] == invID {
			delete(h.by, id)
		}
	}
}

// reset replaces the index with by.
func (h *holders) reset(by map[string]string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.by = by
}

// unlessHeld runs fn while no inventory can claim id, failing when one
// already holds it.
func (h *holders) unlessHeld(id string, fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if other, ok := h.by[id]; ok {
		return fmt.Errorf("modified item %q held in inventory %q: %w", id, other, item.ErrInvalidOperation)
	}
	return fn()
}
