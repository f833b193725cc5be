package item

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ModifiedItem is a uniquely identified instance carrying a sparse set of
// statistic deltas layered over a static item definition.
type ModifiedItem struct {
	ID     string            `json:"id" yaml:"id"`
	BaseID string            `json:"base_id" yaml:"base_id"`
	Deltas map[Statistic]int `json:"deltas,omitempty" yaml:"deltas,omitempty"`
}

// Delta returns the delta for stat, or 0 when unset.
func (m ModifiedItem) Delta(stat Statistic) int {
	return m.Deltas[stat]
}

func (m ModifiedItem) clone() ModifiedItem {
	out := ModifiedItem{ID: m.ID, BaseID: m.BaseID}
	if len(m.Deltas) > 0 {
		out.Deltas = make(map[Statistic]int, len(m.Deltas))
		for k, v := range m.Deltas {
			out.Deltas[k] = v
		}
	}
	return out
}

// ModifiedRegistry tracks modified item instances and resolves any item ID,
// static or modified, to its static definition.
// All methods are safe for concurrent use.
type ModifiedRegistry struct {
	mu      sync.RWMutex
	catalog Lookup
	items   []*ModifiedItem          // canonical, creation order
	index   map[string]*ModifiedItem // id → item, derived from items
}

// NewModifiedRegistry creates an empty registry over catalog.
//
// Precondition: catalog must be non-nil.
func NewModifiedRegistry(catalog Lookup) *ModifiedRegistry {
	return &ModifiedRegistry{
		catalog: catalog,
		index:   make(map[string]*ModifiedItem),
	}
}

// Catalog returns the static catalog the registry resolves against.
func (r *ModifiedRegistry) Catalog() Lookup {
	return r.catalog
}

// Create registers a new modified instance of the static item baseID and
// returns its ID. When explicitID is empty an ID of the form "<baseID>.<uuid>"
// is generated.
//
// Precondition: baseID must be a static item ID.
// Postcondition: returns ErrNotFound if baseID is not static, or
// ErrInvalidOperation if explicitID is already in use.
func (r *ModifiedRegistry) Create(baseID, explicitID string) (string, error) {
	if !r.catalog.IsValidStaticID(baseID) {
		return "", fmt.Errorf("item: ModifiedRegistry.Create: static item %q: %w", baseID, ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := explicitID
	if id == "" {
		id = fmt.Sprintf("%s.%s", baseID, uuid.New().String())
	} else if r.isValidLocked(id) {
		return "", fmt.Errorf("item: ModifiedRegistry.Create: id %q already in use: %w", id, ErrInvalidOperation)
	}

	m := &ModifiedItem{ID: id, BaseID: baseID}
	r.items = append(r.items, m)
	r.index[id] = m
	return id, nil
}

// Destroy removes the modified instance id.
//
// Postcondition: returns false if id was not a modified item ID.
func (r *ModifiedRegistry) Destroy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, m := range r.items {
		if m.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
	return true
}

// IsModified reports whether id names a tracked modified instance.
func (r *ModifiedRegistry) IsModified(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// IsStatic reports whether id names a static item definition.
func (r *ModifiedRegistry) IsStatic(id string) bool {
	return r.catalog.IsValidStaticID(id)
}

// IsValid reports whether id is either a static or a modified item ID.
func (r *ModifiedRegistry) IsValid(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isValidLocked(id)
}

func (r *ModifiedRegistry) isValidLocked(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := r.index[id]; ok {
		return true
	}
	return r.catalog.IsValidStaticID(id)
}

// ResolveBase returns the static item ID behind id. Static IDs resolve to
// themselves.
//
// Postcondition: returns ErrNotFound if id is neither static nor modified.
func (r *ModifiedRegistry) ResolveBase(id string) (string, error) {
	if r.catalog.IsValidStaticID(id) {
		return id, nil
	}
	r.mu.RLock()
	m, ok := r.index[id]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("item: ModifiedRegistry.ResolveBase: %q: %w", id, ErrNotFound)
	}
	return m.BaseID, nil
}

// Def returns the static definition behind id, which may be static or modified.
//
// Postcondition: returns ErrNotFound if id cannot be resolved.
func (r *ModifiedRegistry) Def(id string) (*Def, error) {
	base, err := r.ResolveBase(id)
	if err != nil {
		return nil, err
	}
	d, ok := r.catalog.Def(base)
	if !ok {
		return nil, fmt.Errorf("item: ModifiedRegistry.Def: base item %q of %q: %w", base, id, ErrNotFound)
	}
	return d, nil
}

// Get returns a copy of the modified item id.
//
// Postcondition: ok is false if id is not a modified item ID.
func (r *ModifiedRegistry) Get(id string) (ModifiedItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.index[id]
	if !ok {
		return ModifiedItem{}, false
	}
	return m.clone(), true
}

// StatDelta returns the delta for stat on the modified item id, defaulting to 0.
//
// Postcondition: returns ErrNotFound if id is not a modified item ID.
func (r *ModifiedRegistry) StatDelta(id string, stat Statistic) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.index[id]
	if !ok {
		return 0, fmt.Errorf("item: ModifiedRegistry.StatDelta: modified item %q: %w", id, ErrNotFound)
	}
	return m.Delta(stat), nil
}

// SetStatDelta sets the delta for stat on the modified item id. Static IDs
// are rejected: modified instances are only ever created through Create.
//
// Postcondition: returns ErrNotFound if id is not a modified item ID.
func (r *ModifiedRegistry) SetStatDelta(id string, stat Statistic, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.index[id]
	if !ok {
		return fmt.Errorf("item: ModifiedRegistry.SetStatDelta: modified item %q: %w", id, ErrNotFound)
	}
	if m.Deltas == nil {
		m.Deltas = make(map[Statistic]int)
	}
	m.Deltas[stat] = value
	return nil
}

// ModifyStatDelta adds delta to the current delta for stat and returns the
// new delta.
//
// Postcondition: returns ErrNotFound if id is not a modified item ID.
func (r *ModifiedRegistry) ModifyStatDelta(id string, stat Statistic, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.index[id]
	if !ok {
		return 0, fmt.Errorf("item: ModifiedRegistry.ModifyStatDelta: modified item %q: %w", id, ErrNotFound)
	}
	if m.Deltas == nil {
		m.Deltas = make(map[Statistic]int)
	}
	m.Deltas[stat] += delta
	return m.Deltas[stat], nil
}

// StatValue returns the effective value of stat for id: the base definition's
// value plus the instance delta when id is a modified item.
//
// Postcondition: returns ErrNotFound if id cannot be resolved.
func (r *ModifiedRegistry) StatValue(id string, stat Statistic) (int, error) {
	d, err := r.Def(id)
	if err != nil {
		return 0, err
	}
	value := d.Stat(stat)
	r.mu.RLock()
	if m, ok := r.index[id]; ok {
		value += m.Delta(stat)
	}
	r.mu.RUnlock()
	return value, nil
}

// Len returns the number of tracked modified items.
func (r *ModifiedRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// NumStaticItems returns the number of static definitions in the catalog.
func (r *ModifiedRegistry) NumStaticItems() int {
	return r.catalog.Len()
}

// Export returns copies of all modified items in creation order.
func (r *ModifiedRegistry) Export() []ModifiedItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModifiedItem, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m.clone())
	}
	return out
}

// Import replaces the registry contents with items and rebuilds the index.
// Base IDs are not checked against the catalog.
//
// Postcondition: returns ErrInvalidOperation on an empty or duplicate ID, in
// which case the registry is unchanged.
func (r *ModifiedRegistry) Import(items []ModifiedItem) error {
	next := make([]*ModifiedItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, m := range items {
		if m.ID == "" || seen[m.ID] {
			return fmt.Errorf("item: ModifiedRegistry.Import: bad id %q: %w", m.ID, ErrInvalidOperation)
		}
		seen[m.ID] = true
		c := m.clone()
		next = append(next, &c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = next
	r.rebuildIndexLocked()
	return nil
}

// RebuildIndex reconstructs the id lookup map from the canonical list.
func (r *ModifiedRegistry) RebuildIndex() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuildIndexLocked()
}

func (r *ModifiedRegistry) rebuildIndexLocked() {
	r.index = make(map[string]*ModifiedItem, len(r.items))
	for _, m := range r.items {
		r.index[m.ID] = m
	}
}
