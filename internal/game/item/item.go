// Package item provides the static item catalog and the registry of modified
// item instances layered on top of it.
package item

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Category groups item definitions for display and filtering.
type Category string

// Category constants for Def.Category.
const (
	CategoryArmour        Category = "armour"
	CategoryWeapon        Category = "weapon"
	CategoryConsumable    Category = "consumable"
	CategoryKeyItem       Category = "key_item"
	CategoryMiscellaneous Category = "miscellaneous"
)

// validCategories is the set of valid Def categories.
var validCategories = map[Category]bool{
	CategoryArmour:        true,
	CategoryWeapon:        true,
	CategoryConsumable:    true,
	CategoryKeyItem:       true,
	CategoryMiscellaneous: true,
}

// Statistic names an integer attribute carried by an item.
type Statistic string

// Statistic constants.
const (
	StatValue         Statistic = "value"
	StatWeight        Statistic = "weight"
	StatAttack        Statistic = "attack"
	StatDefense       Statistic = "defense"
	StatHealthRestore Statistic = "health_restore"
	StatManaRestore   Statistic = "mana_restore"
)

// Def defines the static, shared properties of an item loaded from YAML.
// A Def is never mutated once registered in a Catalog.
type Def struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Category    Category          `yaml:"category"`
	MaxStack    int               `yaml:"max_stack"`
	Consumable  bool              `yaml:"consumable"`
	Stats       map[Statistic]int `yaml:"stats"`
}

// Validate checks that the Def satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if !validCategories[d.Category] {
		errs = append(errs, fmt.Errorf("Category must be one of armour, weapon, consumable, key_item, miscellaneous; got %q", d.Category))
	}
	if d.MaxStack < 1 {
		errs = append(errs, errors.New("MaxStack must be >= 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// IsStackable reports whether more than one unit fits in a single slot.
func (d *Def) IsStackable() bool {
	return d.MaxStack > 1
}

// Stat returns the base value of stat, or 0 when the definition does not set it.
func (d *Def) Stat(stat Statistic) int {
	return d.Stats[stat]
}

// LoadCatalog reads all *.yaml and *.yml files from dir and returns a Catalog
// of the definitions they contain. A file holds either a single definition or
// a YAML sequence of definitions.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns a Catalog of all valid defs or the first encountered error.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: cannot read directory %q: %w", dir, err)
	}

	cat := NewCatalog()
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		defs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			if err := d.Validate(); err != nil {
				return nil, fmt.Errorf("LoadCatalog: invalid item in %q: %w", path, err)
			}
			if err := cat.Register(d); err != nil {
				return nil, fmt.Errorf("LoadCatalog: %q: %w", path, err)
			}
		}
	}
	return cat, nil
}

func loadFile(path string) ([]*Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCatalog: cannot read file %q: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("LoadCatalog: cannot parse file %q: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var defs []*Def
		if err := root.Decode(&defs); err != nil {
			return nil, fmt.Errorf("LoadCatalog: cannot decode file %q: %w", path, err)
		}
		return defs, nil
	}
	var d Def
	if err := root.Decode(&d); err != nil {
		return nil, fmt.Errorf("LoadCatalog: cannot decode file %q: %w", path, err)
	}
	return []*Def{&d}, nil
}
