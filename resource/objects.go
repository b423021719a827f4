package resource

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/rpgscript/game/item"
)

// Dice is an "n d x" roll.
type Dice struct {
	N uint16 `yaml:"n"`
	X uint16 `yaml:"x"`
}

// ItemObject is the static definition of an item kind, read from items.yaml.
type ItemObject struct {
	ID           string    `yaml:"id"`
	Kind         item.Kind `yaml:"kind"`
	DefaultFlags []string  `yaml:"default_flags"`
	BasicPrice   int64     `yaml:"basic_price"`
	Weight       uint32    `yaml:"w"`
	GenWeight    float32   `yaml:"gen_weight"`
	StoreWeight  float32   `yaml:"store_weight"`
	GenLevel     uint32    `yaml:"gen_level"`
	Dice         Dice      `yaml:"dice"`
	Eff          uint16    `yaml:"eff"`
	Def          uint16    `yaml:"def"`
	Medical      string    `yaml:"medical_effect"`
	Nutrition    uint32    `yaml:"nutrition"`

	flags item.Flags
}

// Flags returns the parsed default flags.
func (o *ItemObject) Flags() item.Flags { return o.flags }

var flagNames = map[string]item.Flags{
	"eatable":   item.Eatable,
	"drinkable": item.Drinkable,
}

func parseFlags(names []string) (item.Flags, error) {
	var f item.Flags
	for _, name := range names {
		bit, ok := flagNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", name)
		}
		f |= bit
	}
	return f, nil
}

// ObjectTable indexes item objects. The Idx of an object is its position in
// items.yaml.
type ObjectTable struct {
	objs []*ItemObject
	byID map[string]item.Idx
}

func newObjectTable(objs []*ItemObject) (*ObjectTable, error) {
	t := &ObjectTable{objs: objs, byID: make(map[string]item.Idx, len(objs))}
	for i, o := range objs {
		if o == nil || o.ID == "" {
			return nil, fmt.Errorf("resource: item object %d has no id", i)
		}
		if _, dup := t.byID[o.ID]; dup {
			return nil, fmt.Errorf("resource: duplicate item object %q", o.ID)
		}
		f, err := parseFlags(o.DefaultFlags)
		if err != nil {
			return nil, fmt.Errorf("resource: item object %q: %w", o.ID, err)
		}
		o.flags = f
		t.byID[o.ID] = item.Idx(i)
	}
	return t, nil
}

// Len returns the number of objects.
func (t *ObjectTable) Len() int { return len(t.objs) }

// IdxOf returns the index of the object id.
func (t *ObjectTable) IdxOf(id string) (item.Idx, bool) {
	idx, ok := t.byID[id]
	return idx, ok
}

// Get returns the object at idx.
func (t *ObjectTable) Get(idx item.Idx) (*ItemObject, bool) {
	if int(idx) >= len(t.objs) {
		return nil, false
	}
	return t.objs[idx], true
}

// BasicPrice returns the basic price of the object at idx. Objects priced at
// zero are not traded.
func (t *ObjectTable) BasicPrice(idx item.Idx) (int64, bool) {
	o, ok := t.Get(idx)
	if !ok || o.BasicPrice <= 0 {
		return 0, false
	}
	return o.BasicPrice, true
}

// NewItem builds an item of object id with default flags and zero rank.
func (t *ObjectTable) NewItem(id string) (item.Item, error) {
	idx, ok := t.byID[id]
	if !ok {
		return item.Item{}, fmt.Errorf("resource: unknown item object %q", id)
	}
	o := t.objs[idx]
	return item.Item{Idx: idx, Kind: o.Kind, Flags: o.flags}, nil
}
