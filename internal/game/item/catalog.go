package item

import (
	"fmt"
	"sort"
)

// Lookup is the read-only view of the static item catalog.
type Lookup interface {
	// Def returns the definition for a static item ID.
	Def(id string) (*Def, bool)
	// IsValidStaticID reports whether id names a static item definition.
	IsValidStaticID(id string) bool
	// Len returns the number of static definitions.
	Len() int
}

// Catalog holds all loaded item definitions indexed by ID.
// A Catalog is populated once at startup and read-only afterwards.
type Catalog struct {
	defs map[string]*Def
}

// NewCatalog returns a Catalog holding defs.
//
// Precondition: every def must be non-nil.
// Postcondition: the first def wins on duplicate IDs; use Register to detect them.
func NewCatalog(defs ...*Def) *Catalog {
	c := &Catalog{defs: make(map[string]*Def, len(defs))}
	for _, d := range defs {
		_ = c.Register(d)
	}
	return c
}

// Register adds d to the catalog.
//
// Precondition:  d must not be nil.
// Postcondition: Def(d.ID) returns (d, true); returns error if d.ID already registered.
func (c *Catalog) Register(d *Def) error {
	if _, exists := c.defs[d.ID]; exists {
		return fmt.Errorf("item: Catalog.Register: item ID %q already registered: %w", d.ID, ErrInvalidOperation)
	}
	c.defs[d.ID] = d
	return nil
}

// Def returns the Def for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (c *Catalog) Def(id string) (*Def, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// IsValidStaticID reports whether id is registered.
func (c *Catalog) IsValidStaticID(id string) bool {
	_, ok := c.defs[id]
	return ok
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// All returns all registered Defs ordered by ID.
//
// Postcondition: len(result) == Len().
func (c *Catalog) All() []*Def {
	out := make([]*Def, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
