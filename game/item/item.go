// Package item implements items, sorted item lists and equipment slot tables.
package item

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

const (
	// MaxItemTile is the maximum number of entries on one tile or in one bag.
	MaxItemTile = 256
	// MaxEquipSlot bounds the number of slots of one kind.
	MaxEquipSlot = 16
)

// Idx is the index of an item object in the object table.
type Idx uint32

// KindRough is the top-level item category, in list sort order.
type KindRough uint8

const (
	KindObject KindRough = iota
	KindPotion
	KindFood
	KindWeapon
	KindArmor
	KindMaterial
	KindSpecial
)

var roughNames = [...]string{"object", "potion", "food", "weapon", "armor", "material", "special"}

func (k KindRough) String() string {
	if int(k) < len(roughNames) {
		return roughNames[k]
	}
	return fmt.Sprintf("KindRough(%d)", k)
}

// WeaponKind is the sub kind of KindWeapon.
type WeaponKind uint8

const (
	Sword WeaponKind = iota
	Spear
	Axe
	Whip
	Bow
	Crossbow
	Gun
)

var weaponNames = [...]string{"sword", "spear", "axe", "whip", "bow", "crossbow", "gun"}

// ArmorKind is the sub kind of KindArmor.
type ArmorKind uint8

const (
	Body ArmorKind = iota
	Shield
)

var armorNames = [...]string{"body", "shield"}

// Kind is the full item kind. Sub is only meaningful for weapons and armors
// and is always zero otherwise.
type Kind struct {
	Rough KindRough
	Sub   uint8
}

// Simple returns a kind without sub kind.
func Simple(r KindRough) Kind { return Kind{Rough: r} }

// Weapon returns the weapon kind wk.
func Weapon(wk WeaponKind) Kind { return Kind{Rough: KindWeapon, Sub: uint8(wk)} }

// Armor returns the armor kind ak.
func Armor(ak ArmorKind) Kind { return Kind{Rough: KindArmor, Sub: uint8(ak)} }

// ParseKind parses "potion", "weapon/sword", "armor/shield" and so on.
func ParseKind(s string) (Kind, error) {
	rough, sub, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "/")
	r := slices.Index(roughNames[:], rough)
	if r < 0 {
		return Kind{}, fmt.Errorf("item: unknown kind %q", s)
	}
	switch KindRough(r) {
	case KindWeapon:
		i := slices.Index(weaponNames[:], sub)
		if i < 0 {
			return Kind{}, fmt.Errorf("item: unknown weapon kind %q", s)
		}
		return Weapon(WeaponKind(i)), nil
	case KindArmor:
		i := slices.Index(armorNames[:], sub)
		if i < 0 {
			return Kind{}, fmt.Errorf("item: unknown armor kind %q", s)
		}
		return Armor(ArmorKind(i)), nil
	}
	if sub != "" {
		return Kind{}, fmt.Errorf("item: kind %q takes no sub kind", s)
	}
	return Simple(KindRough(r)), nil
}

func (k Kind) String() string {
	switch k.Rough {
	case KindWeapon:
		if int(k.Sub) < len(weaponNames) {
			return "weapon/" + weaponNames[k.Sub]
		}
	case KindArmor:
		if int(k.Sub) < len(armorNames) {
			return "armor/" + armorNames[k.Sub]
		}
	}
	return k.Rough.String()
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Compare orders kinds by category, then sub kind.
func (k Kind) Compare(o Kind) int {
	if c := cmp.Compare(k.Rough, o.Rough); c != 0 {
		return c
	}
	return cmp.Compare(k.Sub, o.Sub)
}

// EquipSlotKind returns the slot kind that can hold items of kind k.
func (k Kind) EquipSlotKind() (EquipSlotKind, bool) {
	switch k.Rough {
	case KindWeapon:
		switch WeaponKind(k.Sub) {
		case Axe, Spear, Sword:
			return SlotMeleeWeapon, true
		}
		return SlotRangedWeapon, true
	case KindArmor:
		if ArmorKind(k.Sub) == Shield {
			return SlotShield, true
		}
		return SlotBodyArmor, true
	}
	return 0, false
}

// Flags is a bit set of item properties.
type Flags uint64

const (
	Eatable Flags = 1 << iota
	Drinkable
)

// Contains reports whether all bits of o are set in f.
func (f Flags) Contains(o Flags) bool { return f&o == o }

// Rank drives effect calculation. Ordered by base, enchant, then damage.
type Rank struct {
	Base    int8 `json:"base"`
	Enchant int8 `json:"enchant"`
	Damage  int8 `json:"damage"`
}

// Sum returns the summation of rank values.
func (r Rank) Sum() int32 { return int32(r.Base) + int32(r.Enchant) + int32(r.Damage) }

func (r Rank) Compare(o Rank) int {
	if c := cmp.Compare(r.Base, o.Base); c != 0 {
		return c
	}
	if c := cmp.Compare(r.Enchant, o.Enchant); c != 0 {
		return c
	}
	return cmp.Compare(r.Damage, o.Damage)
}

// AttributeKind tags an Attribute.
type AttributeKind uint8

const (
	// AttrContentGen fixes the generated contents of a container when it is opened.
	AttrContentGen AttributeKind = iota
)

// Attribute is one tagged item attribute. Level and Seed belong to AttrContentGen.
type Attribute struct {
	Kind  AttributeKind `json:"kind"`
	Level uint32        `json:"level"`
	Seed  uint32        `json:"seed"`
}

// ContentGen returns a content generation attribute.
func ContentGen(level, seed uint32) Attribute {
	return Attribute{Kind: AttrContentGen, Level: level, Seed: seed}
}

func (a Attribute) Compare(o Attribute) int {
	if c := cmp.Compare(a.Kind, o.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Level, o.Level); c != 0 {
		return c
	}
	return cmp.Compare(a.Seed, o.Seed)
}

// Item is one game item. Items are values; two items with the same
// (kind, idx, rank, attributes) stack in an ItemList.
type Item struct {
	Idx        Idx         `json:"idx"`
	Kind       Kind        `json:"kind"`
	Flags      Flags       `json:"flags"`
	Rank       Rank        `json:"rank"`
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Compare is the total order used by ItemList: kind, idx, rank, attributes.
// Flags do not take part.
func (it Item) Compare(o Item) int {
	if c := it.Kind.Compare(o.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(it.Idx, o.Idx); c != 0 {
		return c
	}
	if c := it.Rank.Compare(o.Rank); c != 0 {
		return c
	}
	return slices.CompareFunc(it.Attributes, o.Attributes, Attribute.Compare)
}

// Equal reports field-wise equality, flags included.
func (it Item) Equal(o Item) bool {
	return it.Compare(o) == 0 && it.Flags == o.Flags
}

// Clone returns a copy that shares no memory with it.
func (it Item) Clone() Item {
	it.Attributes = slices.Clone(it.Attributes)
	return it
}
