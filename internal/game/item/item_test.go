package item_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cory-johannsen/stash/internal/game/item"
	"pgregory.net/rapid"
)

func TestDef_Validate_RejectsEmptyID(t *testing.T) {
	d := &item.Def{
		Name:     "Junk",
		Category: item.CategoryMiscellaneous,
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty ID, got nil")
	}
}

func TestDef_Validate_RejectsEmptyName(t *testing.T) {
	d := &item.Def{
		ID:       "junk",
		Category: item.CategoryMiscellaneous,
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for empty Name, got nil")
	}
}

func TestDef_Validate_RejectsInvalidCategory(t *testing.T) {
	d := &item.Def{
		ID:       "junk",
		Name:     "Junk",
		Category: "furniture",
		MaxStack: 1,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for invalid Category, got nil")
	}
}

func TestDef_Validate_RejectsZeroMaxStack(t *testing.T) {
	d := &item.Def{
		ID:       "junk",
		Name:     "Junk",
		Category: item.CategoryMiscellaneous,
	}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for MaxStack==0, got nil")
	}
}

func TestDef_Validate_AcceptsMinimal(t *testing.T) {
	d := &item.Def{
		ID:       "junk",
		Name:     "Junk",
		Category: item.CategoryMiscellaneous,
		MaxStack: 1,
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestDef_Stat_DefaultsToZero(t *testing.T) {
	d := &item.Def{ID: "sword", Stats: map[item.Statistic]int{item.StatAttack: 3}}
	if got := d.Stat(item.StatAttack); got != 3 {
		t.Errorf("got Attack=%d, want 3", got)
	}
	if got := d.Stat(item.StatDefense); got != 0 {
		t.Errorf("got Defense=%d, want 0", got)
	}
}

func TestLoadCatalog_SingleAndListFiles(t *testing.T) {
	dir := t.TempDir()
	single := `id: sword
name: Sword
category: weapon
max_stack: 1
stats:
  value: 150
  attack: 3
`
	list := `# consumables
- id: health_potion
  name: Health Potion
  category: consumable
  max_stack: 10
  consumable: true
  stats:
    health_restore: 25
- id: mana_potion
  name: Mana Potion
  category: consumable
  max_stack: 10
  consumable: true
`
	if err := os.WriteFile(filepath.Join(dir, "sword.yaml"), []byte(single), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "potions.yml"), []byte(list), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	cat, err := item.LoadCatalog(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat.Len() != 3 {
		t.Fatalf("got %d defs, want 3", cat.Len())
	}
	sword, ok := cat.Def("sword")
	if !ok {
		t.Fatal("sword not loaded")
	}
	if sword.Stat(item.StatValue) != 150 {
		t.Errorf("got sword value=%d, want 150", sword.Stat(item.StatValue))
	}
	potion, ok := cat.Def("health_potion")
	if !ok {
		t.Fatal("health_potion not loaded")
	}
	if !potion.IsStackable() || !potion.Consumable {
		t.Errorf("health_potion should be a stackable consumable: %+v", potion)
	}
}

func TestLoadCatalog_RejectsInvalidDef(t *testing.T) {
	dir := t.TempDir()
	bad := "id: broken\nname: Broken\ncategory: weapon\nmax_stack: 0\n"
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := item.LoadCatalog(dir); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestLoadCatalog_RejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	def := "id: rock\nname: Rock\ncategory: miscellaneous\nmax_stack: 5\n"
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(def), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := item.LoadCatalog(dir); err == nil {
		t.Fatal("expected duplicate ID error, got nil")
	}
}

func TestLoadCatalog_MissingDir(t *testing.T) {
	if _, err := item.LoadCatalog(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadCatalog_ShippedContent(t *testing.T) {
	cat, err := item.LoadCatalog(filepath.Join("..", "..", "..", "content", "items"))
	if err != nil {
		t.Fatalf("loading shipped catalog: %v", err)
	}
	for _, id := range []string{"weapon.sword", "consumable.health_potion", "miscellaneous.gold", "key_item.crypt_key"} {
		if !cat.IsValidStaticID(id) {
			t.Errorf("shipped catalog missing %q", id)
		}
	}
	d, ok := cat.Def("weapon.arrow")
	if !ok || !d.IsStackable() {
		t.Errorf("weapon.arrow should be stackable, got %+v", d)
	}
}

func TestProperty_Def_Validate_MaxStack(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxStack := rapid.IntRange(-10, 100).Draw(t, "maxStack")
		d := &item.Def{ID: "x", Name: "X", Category: item.CategoryMiscellaneous, MaxStack: maxStack}
		err := d.Validate()
		if maxStack >= 1 && err != nil {
			t.Fatalf("MaxStack %d should be valid: %v", maxStack, err)
		}
		if maxStack < 1 && err == nil {
			t.Fatalf("MaxStack %d should be invalid", maxStack)
		}
	})
}
