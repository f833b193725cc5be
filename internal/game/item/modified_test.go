package item_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/stash/internal/game/item"
)

var invalidIDs = []string{"armour.sword", "weapon.shield", "Jibberish", ""}

func sharedRegistry(t *testing.T) *item.ModifiedRegistry {
	t.Helper()
	r := item.NewModifiedRegistry(testCatalog())
	_, err := r.Create(swordID, modSwordID)
	require.NoError(t, err)
	require.NoError(t, r.SetStatDelta(modSwordID, item.StatValue, -10))
	return r
}

func TestModifiedRegistry_Create_GeneratesUniqueIDs(t *testing.T) {
	for _, base := range []string{shieldID, swordID} {
		r := item.NewModifiedRegistry(testCatalog())
		first, err := r.Create(base, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(first, base+"."), "id %q should start with %q", first, base+".")
		assert.True(t, r.IsValid(first))

		second, err := r.Create(base, "")
		require.NoError(t, err)
		assert.True(t, r.IsValid(second))
		assert.NotEqual(t, first, second)
	}
}

func TestModifiedRegistry_Create_InvalidBase(t *testing.T) {
	r := sharedRegistry(t)
	for _, id := range invalidIDs {
		_, err := r.Create(id, "")
		assert.ErrorIs(t, err, item.ErrNotFound, "base %q", id)
	}
}

func TestModifiedRegistry_Create_ModifiedBaseRejected(t *testing.T) {
	r := sharedRegistry(t)
	_, err := r.Create(modSwordID, "")
	assert.ErrorIs(t, err, item.ErrNotFound)
}

func TestModifiedRegistry_Create_ExplicitIDInUse(t *testing.T) {
	r := sharedRegistry(t)
	_, err := r.Create(swordID, modSwordID)
	assert.ErrorIs(t, err, item.ErrInvalidOperation)

	_, err = r.Create(swordID, shieldID)
	assert.ErrorIs(t, err, item.ErrInvalidOperation, "static IDs are also in use")
}

func TestModifiedRegistry_IDClassification(t *testing.T) {
	r := sharedRegistry(t)

	for _, id := range []string{shieldID, swordID, modSwordID} {
		assert.True(t, r.IsValid(id), "IsValid(%q)", id)
	}
	for _, id := range invalidIDs {
		assert.False(t, r.IsValid(id), "IsValid(%q)", id)
	}
	assert.True(t, r.IsStatic(swordID))
	assert.False(t, r.IsStatic(modSwordID))
	assert.True(t, r.IsModified(modSwordID))
	assert.False(t, r.IsModified(swordID))
}

func TestModifiedRegistry_Counts(t *testing.T) {
	r := item.NewModifiedRegistry(testCatalog())
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 3, r.NumStaticItems())

	_, err := r.Create(swordID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
	_, err = r.Create(shieldID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 3, r.NumStaticItems(), "modified items must not change the static count")
}

func TestModifiedRegistry_Destroy(t *testing.T) {
	r := sharedRegistry(t)
	assert.True(t, r.Destroy(modSwordID))
	assert.False(t, r.IsValid(modSwordID))
	assert.False(t, r.Destroy(modSwordID), "second destroy reports not found")
	assert.False(t, r.Destroy(swordID), "static IDs cannot be destroyed")
	assert.Equal(t, 0, r.Len())
}

func TestModifiedRegistry_ResolveBase(t *testing.T) {
	r := sharedRegistry(t)

	base, err := r.ResolveBase(modSwordID)
	require.NoError(t, err)
	assert.Equal(t, swordID, base)

	base, err = r.ResolveBase(shieldID)
	require.NoError(t, err)
	assert.Equal(t, shieldID, base)

	for _, id := range invalidIDs {
		_, err := r.ResolveBase(id)
		assert.ErrorIs(t, err, item.ErrNotFound, "id %q", id)
	}
}

func TestModifiedRegistry_Def(t *testing.T) {
	r := sharedRegistry(t)
	for id, want := range map[string]string{shieldID: shieldID, swordID: swordID, modSwordID: swordID} {
		d, err := r.Def(id)
		require.NoError(t, err)
		assert.Equal(t, want, d.ID)
	}
	for _, id := range invalidIDs {
		_, err := r.Def(id)
		assert.ErrorIs(t, err, item.ErrNotFound)
	}
}

func TestModifiedRegistry_StatValue(t *testing.T) {
	r := sharedRegistry(t)
	cases := []struct {
		id   string
		stat item.Statistic
		want int
	}{
		{shieldID, item.StatValue, 100},
		{shieldID, item.StatWeight, 20},
		{shieldID, item.StatAttack, 0},
		{shieldID, item.StatDefense, 2},
		{swordID, item.StatValue, 150},
		{swordID, item.StatWeight, 10},
		{swordID, item.StatAttack, 3},
		{swordID, item.StatDefense, 0},
		{modSwordID, item.StatValue, 140},
		{modSwordID, item.StatWeight, 10},
		{modSwordID, item.StatAttack, 3},
		{modSwordID, item.StatDefense, 0},
	}
	for _, tc := range cases {
		got, err := r.StatValue(tc.id, tc.stat)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s/%s", tc.id, tc.stat)
	}
	for _, id := range invalidIDs {
		_, err := r.StatValue(id, item.StatValue)
		assert.ErrorIs(t, err, item.ErrNotFound)
	}
}

func TestModifiedRegistry_StatDelta(t *testing.T) {
	r := sharedRegistry(t)
	got, err := r.StatDelta(modSwordID, item.StatValue)
	require.NoError(t, err)
	assert.Equal(t, -10, got)

	got, err = r.StatDelta(modSwordID, item.StatWeight)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	for _, id := range append([]string{shieldID, swordID}, invalidIDs...) {
		_, err := r.StatDelta(id, item.StatValue)
		assert.ErrorIs(t, err, item.ErrNotFound, "id %q", id)
	}
}

func TestModifiedRegistry_SetStatDelta_StaticIDRejected(t *testing.T) {
	r := item.NewModifiedRegistry(testCatalog())
	err := r.SetStatDelta(shieldID, item.StatWeight, 50)
	assert.ErrorIs(t, err, item.ErrNotFound)
	assert.Equal(t, 0, r.Len(), "no instance is created implicitly")
}

func TestModifiedRegistry_ModifyStatDelta(t *testing.T) {
	r := item.NewModifiedRegistry(testCatalog())
	id, err := r.Create(swordID, "")
	require.NoError(t, err)
	require.NoError(t, r.SetStatDelta(id, item.StatValue, -10))

	value, err := r.ModifyStatDelta(id, item.StatValue, -10)
	require.NoError(t, err)
	assert.Equal(t, -20, value)

	weight, err := r.ModifyStatDelta(id, item.StatWeight, 35)
	require.NoError(t, err)
	assert.Equal(t, 35, weight)

	for _, bad := range append([]string{swordID}, invalidIDs...) {
		_, err := r.ModifyStatDelta(bad, item.StatWeight, 50)
		assert.ErrorIs(t, err, item.ErrNotFound, "id %q", bad)
	}
}

func TestModifiedRegistry_Get_ReturnsCopy(t *testing.T) {
	r := sharedRegistry(t)
	m, ok := r.Get(modSwordID)
	require.True(t, ok)
	assert.Equal(t, swordID, m.BaseID)
	m.Deltas[item.StatValue] = 999

	got, err := r.StatDelta(modSwordID, item.StatValue)
	require.NoError(t, err)
	assert.Equal(t, -10, got)

	_, ok = r.Get(swordID)
	assert.False(t, ok)
}

func TestModifiedRegistry_ExportImport_RoundTrip(t *testing.T) {
	r := sharedRegistry(t)
	other, err := r.Create(shieldID, "")
	require.NoError(t, err)
	_, err = r.ModifyStatDelta(other, item.StatDefense, 4)
	require.NoError(t, err)

	exported := r.Export()
	require.Len(t, exported, 2)
	assert.Equal(t, modSwordID, exported[0].ID, "export keeps creation order")

	restored := item.NewModifiedRegistry(testCatalog())
	require.NoError(t, restored.Import(exported))
	assert.Equal(t, exported, restored.Export())

	v, err := restored.StatValue(other, item.StatDefense)
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestModifiedRegistry_Import_RejectsDuplicates(t *testing.T) {
	r := sharedRegistry(t)
	err := r.Import([]item.ModifiedItem{
		{ID: "a", BaseID: swordID},
		{ID: "a", BaseID: shieldID},
	})
	assert.ErrorIs(t, err, item.ErrInvalidOperation)
	assert.True(t, r.IsModified(modSwordID), "failed import leaves registry unchanged")
}

func TestProperty_ModifiedRegistry_IDsNeverReused(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := item.NewModifiedRegistry(testCatalog())
		n := rapid.IntRange(1, 50).Draw(t, "n")
		seen := make(map[string]bool)
		for i := 0; i < n; i++ {
			base := rapid.SampledFrom([]string{shieldID, swordID, potionID}).Draw(t, "base")
			id, err := r.Create(base, "")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if seen[id] {
				t.Fatalf("id %q reused", id)
			}
			seen[id] = true
			if rapid.Bool().Draw(t, "destroy") {
				r.Destroy(id)
			}
			got, err := r.ResolveBase(id)
			if err == nil && got != base {
				t.Fatalf("id %q resolved to %q, want %q", id, got, base)
			}
		}
	})
}
