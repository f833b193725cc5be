// Package inventory implements fixed-size slotted containers, the quantity and
// capacity arithmetic used to plan item placement, and the registry that owns
// live inventories.
//
// Inventories are not safe for concurrent use. Callers serialize access to an
// inventory, typically through Manager.WithInventories.
package inventory

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// ErrUnderflow is returned when a subtraction would leave a negative quantity
// or capacity.
var ErrUnderflow = errors.New("underflow")

// ErrInventoryNotFound is returned when an inventory ID is not registered.
var ErrInventoryNotFound = fmt.Errorf("inventory %w", item.ErrNotFound)

// Resolver resolves static and modified item IDs to their definitions and
// effective statistics. *item.ModifiedRegistry satisfies it.
type Resolver interface {
	// Def returns the static definition behind id.
	Def(id string) (*item.Def, error)
	// IsModified reports whether id names a modified item instance.
	IsModified(id string) bool
	// StatValue returns the effective statistic value for id.
	StatValue(id string, stat item.Statistic) (int, error)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
