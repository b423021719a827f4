package item

import (
	"encoding/json"
	"testing"

	"github.com/kasuganosora/rpgscript/game/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSlots() *EquipItemList {
	return NewEquipItemList([]SlotSpec{
		{Kind: SlotShield, Count: 1},
		{Kind: SlotMeleeWeapon, Count: 2},
		{Kind: SlotBodyArmor, Count: 1},
		{Kind: SlotRangedWeapon, Count: 1},
	})
}

// backing returns the backing list items in order.
func backing(e *EquipItemList) []Idx {
	var out []Idx
	for _, en := range e.list.All() {
		out = append(out, en.Item.Idx)
	}
	return out
}

func TestNewEquipItemList_SortedByKind(t *testing.T) {
	e := defaultSlots()
	assert.Equal(t, 5, e.NSlots())
	assert.Equal(t, 2, e.SlotNum(SlotMeleeWeapon))
	assert.Equal(t, 0, e.Len())

	var kinds []EquipSlotKind
	var ords []int
	for s := range e.Slots() {
		kinds = append(kinds, s.Kind)
		ords = append(ords, s.N)
		assert.Nil(t, s.Item)
	}
	assert.Equal(t, []EquipSlotKind{SlotMeleeWeapon, SlotMeleeWeapon, SlotRangedWeapon, SlotBodyArmor, SlotShield}, kinds)
	assert.Equal(t, []int{0, 1, 0, 0, 0}, ords)
}

func TestIsSlotEmpty(t *testing.T) {
	e := defaultSlots()
	assert.True(t, e.IsSlotEmpty(SlotMeleeWeapon, 1))
	// slot that does not exist
	assert.False(t, e.IsSlotEmpty(SlotShield, 3))
	assert.Panics(t, func() { e.IsSlotEmpty(SlotShield, MaxEquipSlot) })

	e.Equip(SlotMeleeWeapon, 1, sword(1, 0))
	assert.False(t, e.IsSlotEmpty(SlotMeleeWeapon, 1))
}

func TestEquip_ReplaceReturnsOld(t *testing.T) {
	e := defaultSlots()
	a, b := sword(1, 0), sword(2, 0)

	_, had := e.Equip(SlotMeleeWeapon, 0, a)
	assert.False(t, had)
	old, had := e.Equip(SlotMeleeWeapon, 0, b)
	require.True(t, had)
	assert.True(t, old.Equal(a))

	got, ok := e.Item(SlotMeleeWeapon, 0)
	require.True(t, ok)
	assert.True(t, got.Equal(b))
	assert.Equal(t, 1, e.Len())
}

func TestEquip_InsertKeepsTableOrder(t *testing.T) {
	e := defaultSlots()
	e.Equip(SlotShield, 0, Item{Idx: 40, Kind: Armor(Shield)})
	e.Equip(SlotMeleeWeapon, 1, sword(11, 0))
	e.Equip(SlotBodyArmor, 0, Item{Idx: 30, Kind: Armor(Body)})
	e.Equip(SlotMeleeWeapon, 0, sword(10, 0))
	assert.Equal(t, []Idx{10, 11, 30, 40}, backing(e))

	e.Equip(SlotRangedWeapon, 0, Item{Idx: 20, Kind: Weapon(Bow)})
	assert.Equal(t, []Idx{10, 11, 20, 30, 40}, backing(e))

	for s := range e.Equipped() {
		got, ok := e.Item(s.Kind, s.N)
		require.True(t, ok)
		assert.Equal(t, s.Item.Idx, got.Idx)
	}
}

func TestEquip_ReplaceDoesNotReindex(t *testing.T) {
	e := defaultSlots()
	e.Equip(SlotMeleeWeapon, 0, sword(10, 0))
	e.Equip(SlotShield, 0, Item{Idx: 40, Kind: Armor(Shield)})
	e.Equip(SlotMeleeWeapon, 0, sword(12, 0))
	assert.Equal(t, []Idx{12, 40}, backing(e))
}

func TestEquip_OutOfRangePanics(t *testing.T) {
	e := defaultSlots()
	assert.Panics(t, func() { e.Equip(SlotShield, 1, Item{Kind: Armor(Shield)}) })
	assert.Panics(t, func() { e.Equip(SlotMeleeWeapon, -1, sword(1, 0)) })
}

func TestUnequip(t *testing.T) {
	e := defaultSlots()
	e.Equip(SlotMeleeWeapon, 0, sword(10, 0))
	e.Equip(SlotMeleeWeapon, 1, sword(11, 0))
	e.Equip(SlotShield, 0, Item{Idx: 40, Kind: Armor(Shield)})

	it, ok := e.Unequip(SlotMeleeWeapon, 0)
	require.True(t, ok)
	assert.Equal(t, Idx(10), it.Idx)
	assert.Equal(t, []Idx{11, 40}, backing(e))

	got, ok := e.Item(SlotShield, 0)
	require.True(t, ok)
	assert.Equal(t, Idx(40), got.Idx)

	_, ok = e.Unequip(SlotMeleeWeapon, 0)
	assert.False(t, ok)

	e.Equip(SlotMeleeWeapon, 0, sword(13, 0))
	assert.Equal(t, []Idx{13, 11, 40}, backing(e))
}

func TestEquipJSON(t *testing.T) {
	e := defaultSlots()
	e.Equip(SlotShield, 0, Item{Idx: 40, Kind: Armor(Shield)})
	e.Equip(SlotMeleeWeapon, 1, sword(11, 2))

	b, err := json.Marshal(e)
	require.NoError(t, err)

	back := &EquipItemList{}
	require.NoError(t, json.Unmarshal(b, back))
	assert.Equal(t, e.NSlots(), back.NSlots())
	assert.Equal(t, backing(e), backing(back))
	got, ok := back.Item(SlotMeleeWeapon, 1)
	require.True(t, ok)
	assert.Equal(t, int8(2), got.Rank.Base)
	assert.True(t, back.IsSlotEmpty(SlotMeleeWeapon, 0))
}

func TestEquipJSON_RejectsUnknownSlot(t *testing.T) {
	var e EquipItemList
	err := json.Unmarshal([]byte(`{"slots":[{"kind":"shield","count":1}],
		"items":[{"kind":"shield","n":1,"item":{"idx":1,"kind":"armor/shield"}}]}`), &e)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"slots":[{"kind":"shield","count":1}],
		"items":[{"kind":"shield","n":0,"item":{"idx":1,"kind":"armor/shield"}},
		         {"kind":"shield","n":0,"item":{"idx":2,"kind":"armor/shield"}}]}`), &e)
	assert.Error(t, err)
}

func TestFiltered(t *testing.T) {
	l := NewItemList()
	l.Append(potion(1), 2)
	l.Append(Item{Idx: 2, Kind: Simple(KindFood), Flags: Eatable}, 1)
	l.Append(sword(3, 0), 1)
	l.Append(Item{Idx: 4, Kind: Weapon(Bow)}, 1)

	loc := ShopList(common.PlayerID)
	collect := func(f Filter) []int {
		var out []int
		for at := range Filtered(l, loc, f) {
			assert.Equal(t, loc, at.List)
			out = append(out, at.Index)
		}
		return out
	}
	assert.Equal(t, []int{0, 1, 2, 3}, collect(AllItems()))
	assert.Equal(t, []int{1}, collect(Filter{}.WithFlags(Eatable)))
	assert.Equal(t, []int{2}, collect(Filter{}.WithSlot(SlotMeleeWeapon)))
	assert.Equal(t, []int{3}, collect(Filter{}.WithSlot(SlotRangedWeapon)))
	assert.Empty(t, collect(Filter{}.WithSlot(SlotShield)))
}
