package item

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// EquipSlotKind is the kind of an equipment slot, in table order.
type EquipSlotKind uint8

const (
	SlotMeleeWeapon EquipSlotKind = iota
	SlotRangedWeapon
	SlotBodyArmor
	SlotShield
)

var slotNames = [...]string{"melee_weapon", "ranged_weapon", "body_armor", "shield"}

func (k EquipSlotKind) String() string {
	if int(k) < len(slotNames) {
		return slotNames[k]
	}
	return fmt.Sprintf("EquipSlotKind(%d)", k)
}

func (k EquipSlotKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EquipSlotKind) UnmarshalText(b []byte) error {
	i := slices.Index(slotNames[:], strings.ToLower(string(b)))
	if i < 0 {
		return fmt.Errorf("item: unknown equip slot kind %q", b)
	}
	*k = EquipSlotKind(i)
	return nil
}

// SlotSpec configures count slots of one kind.
type SlotSpec struct {
	Kind  EquipSlotKind `json:"kind" mapstructure:"kind"`
	Count int           `json:"count" mapstructure:"count"`
}

type slotInfo struct {
	kind    EquipSlotKind
	n       int
	listIdx int // -1 = empty
}

// EquipItemList is a fixed slot table over a backing list. The backing list
// is ordered by slot table position, not by Item.Compare: the i-th occupied
// slot in table order always holds backing index i.
type EquipItemList struct {
	slots []slotInfo
	list  ItemList
}

// NewEquipItemList builds the slot table from specs, sorted by kind.
func NewEquipItemList(specs []SlotSpec) *EquipItemList {
	specs = slices.Clone(specs)
	slices.SortStableFunc(specs, func(a, b SlotSpec) int { return int(a.Kind) - int(b.Kind) })
	var slots []slotInfo
	for _, sp := range specs {
		if sp.Count > MaxEquipSlot {
			panic(fmt.Sprintf("item: %d slots of %s exceeds %d", sp.Count, sp.Kind, MaxEquipSlot))
		}
		for i := 0; i < sp.Count; i++ {
			slots = append(slots, slotInfo{kind: sp.Kind, n: i, listIdx: -1})
		}
	}
	return &EquipItemList{slots: slots}
}

// SlotNum returns the number of slots of kind k.
func (e *EquipItemList) SlotNum(k EquipSlotKind) int {
	c := 0
	for _, s := range e.slots {
		if s.kind == k {
			c++
		}
	}
	return c
}

// NSlots returns the total number of slots.
func (e *EquipItemList) NSlots() int { return len(e.slots) }

// IsSlotEmpty reports whether slot (k, n) holds nothing. A slot that does
// not exist is reported as not empty.
func (e *EquipItemList) IsSlotEmpty(k EquipSlotKind, n int) bool {
	checkOrdinal(n)
	s := e.find(k, n)
	if s == nil {
		return false
	}
	return s.listIdx < 0
}

// Item returns the item equipped in slot (k, n).
func (e *EquipItemList) Item(k EquipSlotKind, n int) (Item, bool) {
	checkOrdinal(n)
	s := e.find(k, n)
	if s == nil || s.listIdx < 0 {
		return Item{}, false
	}
	return e.list.items[s.listIdx].Item.Clone(), true
}

// Equip puts it into slot (k, n). An occupied slot has its item replaced in
// place and the displaced item is returned; an empty slot gets a new backing
// entry and every later occupied slot shifts by one.
func (e *EquipItemList) Equip(k EquipSlotKind, n int, it Item) (Item, bool) {
	if n < 0 || n >= e.SlotNum(k) {
		panic(fmt.Sprintf("item: equip into slot %s[%d] of %d", k, n, e.SlotNum(k)))
	}
	target := e.find(k, n)
	if target.listIdx >= 0 {
		old := e.list.items[target.listIdx].Item
		e.list.items[target.listIdx].Item = it.Clone()
		return old, true
	}

	newIdx := 0
	pos := 0
	for i := range e.slots {
		if &e.slots[i] == target {
			pos = i
			break
		}
		if e.slots[i].listIdx >= 0 {
			newIdx++
		}
	}
	e.list.insertAt(newIdx, Entry{Item: it.Clone(), Count: 1})
	target.listIdx = newIdx
	for i := pos + 1; i < len(e.slots); i++ {
		if e.slots[i].listIdx >= 0 {
			e.slots[i].listIdx++
		}
	}
	return Item{}, false
}

// Unequip empties slot (k, n) and returns its item. Later occupied slots
// shift back by one.
func (e *EquipItemList) Unequip(k EquipSlotKind, n int) (Item, bool) {
	if n < 0 || n >= e.SlotNum(k) {
		panic(fmt.Sprintf("item: unequip slot %s[%d] of %d", k, n, e.SlotNum(k)))
	}
	target := e.find(k, n)
	if target.listIdx < 0 {
		return Item{}, false
	}
	idx := target.listIdx
	it := e.list.items[idx].Item
	e.list.removeAt(idx)
	target.listIdx = -1
	for i := range e.slots {
		if e.slots[i].listIdx > idx {
			e.slots[i].listIdx--
		}
	}
	return it, true
}

// EquipSlot describes one slot during iteration. Item is nil for empty slots.
type EquipSlot struct {
	Kind EquipSlotKind
	N    int
	Item *Item
}

// Slots iterates every slot in table order.
func (e *EquipItemList) Slots() iter.Seq[EquipSlot] {
	return func(yield func(EquipSlot) bool) {
		for _, s := range e.slots {
			es := EquipSlot{Kind: s.kind, N: s.n}
			if s.listIdx >= 0 {
				it := e.list.items[s.listIdx].Item.Clone()
				es.Item = &it
			}
			if !yield(es) {
				return
			}
		}
	}
}

// Equipped iterates the occupied slots only.
func (e *EquipItemList) Equipped() iter.Seq[EquipSlot] {
	return func(yield func(EquipSlot) bool) {
		for s := range e.Slots() {
			if s.Item != nil && !yield(s) {
				return
			}
		}
	}
}

// Len returns the number of equipped items.
func (e *EquipItemList) Len() int { return e.list.Len() }

func (e *EquipItemList) find(k EquipSlotKind, n int) *slotInfo {
	for i := range e.slots {
		if e.slots[i].kind == k && e.slots[i].n == n {
			return &e.slots[i]
		}
	}
	return nil
}

func checkOrdinal(n int) {
	if n < 0 || n >= MaxEquipSlot {
		panic(fmt.Sprintf("item: slot ordinal %d out of range [0:%d]", n, MaxEquipSlot))
	}
}

type equipJSON struct {
	Slots []SlotSpec `json:"slots"`
	Items []slotItem `json:"items"`
}

type slotItem struct {
	Kind EquipSlotKind `json:"kind"`
	N    int           `json:"n"`
	Item Item          `json:"item"`
}

// specs rebuilds the slot configuration the table was created from.
func (e *EquipItemList) specs() []SlotSpec {
	var out []SlotSpec
	for _, s := range e.slots {
		if len(out) > 0 && out[len(out)-1].Kind == s.kind {
			out[len(out)-1].Count++
			continue
		}
		out = append(out, SlotSpec{Kind: s.kind, Count: 1})
	}
	return out
}

func (e *EquipItemList) MarshalJSON() ([]byte, error) {
	doc := equipJSON{Slots: e.specs(), Items: []slotItem{}}
	for s := range e.Equipped() {
		doc.Items = append(doc.Items, slotItem{Kind: s.Kind, N: s.N, Item: *s.Item})
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds the table by equipping every stored item, which
// re-derives the backing indices instead of trusting them.
func (e *EquipItemList) UnmarshalJSON(b []byte) error {
	var doc equipJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	for _, sp := range doc.Slots {
		if sp.Count < 0 || sp.Count > MaxEquipSlot {
			return fmt.Errorf("item: bad slot count %d for %s", sp.Count, sp.Kind)
		}
	}
	fresh := NewEquipItemList(doc.Slots)
	for _, si := range doc.Items {
		if si.N < 0 || si.N >= fresh.SlotNum(si.Kind) {
			return fmt.Errorf("item: stored slot %s[%d] does not exist", si.Kind, si.N)
		}
		if !fresh.IsSlotEmpty(si.Kind, si.N) {
			return fmt.Errorf("item: slot %s[%d] stored twice", si.Kind, si.N)
		}
		fresh.Equip(si.Kind, si.N, si.Item)
	}
	*e = *fresh
	return nil
}
