package testutil

import (
	"testing"

	"github.com/cory-johannsen/stash/internal/game/item"
)

// Item IDs of the fixture catalog returned by Catalog.
const (
	ShieldID = "armour.shield"
	SwordID  = "weapon.sword"
	PotionID = "consumable.health_potion"
	GoldID   = "miscellaneous.gold"
)

// Catalog returns a small fixed item catalog: a shield and a sword that do
// not stack, health potions stacking to 10 and gold stacking to 100.
func Catalog() *item.Catalog {
	return item.NewCatalog(
		&item.Def{
			ID:       ShieldID,
			Name:     "Shield",
			Category: item.CategoryArmour,
			MaxStack: 1,
			Stats: map[item.Statistic]int{
				item.StatValue:   100,
				item.StatWeight:  20,
				item.StatDefense: 2,
			},
		},
		&item.Def{
			ID:       SwordID,
			Name:     "Sword",
			Category: item.CategoryWeapon,
			MaxStack: 1,
			Stats: map[item.Statistic]int{
				item.StatValue:  150,
				item.StatWeight: 10,
				item.StatAttack: 3,
			},
		},
		&item.Def{
			ID:         PotionID,
			Name:       "Health Potion",
			Category:   item.CategoryConsumable,
			MaxStack:   10,
			Consumable: true,
			Stats: map[item.Statistic]int{
				item.StatValue:         5,
				item.StatWeight:        1,
				item.StatHealthRestore: 25,
			},
		},
		&item.Def{
			ID:       GoldID,
			Name:     "Gold Coin",
			Category: item.CategoryMiscellaneous,
			MaxStack: 100,
			Stats: map[item.Statistic]int{
				item.StatValue: 1,
			},
		},
	)
}

// Registry returns an empty ModifiedRegistry over Catalog.
func Registry(t testing.TB) *item.ModifiedRegistry {
	t.Helper()
	return item.NewModifiedRegistry(Catalog())
}
