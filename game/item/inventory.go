package item

import (
	"encoding/json"
	"fmt"
	"iter"
	"math"
)

// Entry is one stack in an ItemList.
type Entry struct {
	Item  Item   `json:"item"`
	Count uint32 `json:"count"`
}

// MoveNum selects how many units Remove / RemoveAndGet / MoveTo take.
type MoveNum struct {
	all bool
	n   uint32
}

// MoveAll takes every remaining unit of the entry.
var MoveAll = MoveNum{all: true}

// Partial takes exactly n units.
func Partial(n uint32) MoveNum { return MoveNum{n: n} }

func (m MoveNum) resolve(have uint32) uint32 {
	if m.all {
		return have
	}
	return m.n
}

// ItemList records every item owned by one character, one tile or one shop.
// Entries are kept strictly increasing by Item.Compare and every count is > 0.
// An ItemList is not safe for concurrent mutation; its owner serializes writers.
type ItemList struct {
	items []Entry
}

// NewItemList returns an empty list.
func NewItemList() *ItemList { return &ItemList{} }

// Len returns the number of entries.
func (l *ItemList) Len() int { return len(l.items) }

// IsEmpty reports whether the list has no entries.
func (l *ItemList) IsEmpty() bool { return len(l.items) == 0 }

// Get returns a copy of the item at i and its count.
func (l *ItemList) Get(i int) (Item, uint32) {
	e := l.items[i]
	return e.Item.Clone(), e.Count
}

// Number returns the count of entry i.
func (l *ItemList) Number(i int) uint32 { return l.items[i].Count }

// Append adds n units of it, merging with an equal entry.
func (l *ItemList) Append(it Item, n uint32) {
	if n == 0 {
		panic("item: append of zero units")
	}
	for i := range l.items {
		switch c := it.Compare(l.items[i].Item); {
		case c == 0:
			if l.items[i].Count > math.MaxUint32-n {
				panic(fmt.Sprintf("item: appending %d units to %d at index %d overflows", n, l.items[i].Count, i))
			}
			l.items[i].Count += n
			return
		case c < 0:
			l.insertAt(i, Entry{Item: it.Clone(), Count: n})
			return
		}
	}
	l.items = append(l.items, Entry{Item: it.Clone(), Count: n})
}

// Remove takes n units from entry i, deleting the entry when it runs out.
func (l *ItemList) Remove(i int, n MoveNum) {
	l.take(i, n)
}

// RemoveAndGet is Remove returning the removed item.
func (l *ItemList) RemoveAndGet(i int, n MoveNum) Item {
	it, _ := l.take(i, n)
	return it
}

// MoveTo moves n units of entry i into dest. The count is validated before
// either list changes, so a failed move leaves both lists untouched.
func (l *ItemList) MoveTo(dest *ItemList, i int, n MoveNum) {
	it, k := l.take(i, n)
	dest.Append(it, k)
}

// Find returns the first entry holding object idx.
func (l *ItemList) Find(idx Idx) (int, bool) {
	for i := range l.items {
		if l.items[i].Item.Idx == idx {
			return i, true
		}
	}
	return 0, false
}

// Clear removes all entries.
func (l *ItemList) Clear() { l.items = nil }

// All iterates entries in order. The yielded items are copies.
func (l *ItemList) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range l.items {
			e.Item = e.Item.Clone()
			if !yield(i, e) {
				return
			}
		}
	}
}

func (l *ItemList) take(i int, n MoveNum) (Item, uint32) {
	if i < 0 || i >= len(l.items) {
		panic(fmt.Sprintf("item: index %d out of range [0:%d]", i, len(l.items)))
	}
	have := l.items[i].Count
	k := n.resolve(have)
	if k == 0 || k > have {
		panic(fmt.Sprintf("item: cannot remove %d of %d units at index %d", k, have, i))
	}
	if k == have {
		it := l.items[i].Item
		l.removeAt(i)
		return it, k
	}
	l.items[i].Count -= k
	return l.items[i].Item.Clone(), k
}

func (l *ItemList) insertAt(i int, e Entry) {
	l.items = append(l.items, Entry{})
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = e
}

func (l *ItemList) removeAt(i int) {
	l.items = append(l.items[:i], l.items[i+1:]...)
}

func (l *ItemList) MarshalJSON() ([]byte, error) {
	items := l.items
	if items == nil {
		items = []Entry{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON rejects data that breaks the ordering or count invariants.
func (l *ItemList) UnmarshalJSON(b []byte) error {
	var items []Entry
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	for i, e := range items {
		if e.Count == 0 {
			return fmt.Errorf("item: entry %d has zero count", i)
		}
		if i > 0 && items[i-1].Item.Compare(e.Item) >= 0 {
			return fmt.Errorf("item: entry %d is out of order", i)
		}
	}
	l.items = items
	return nil
}
