package item

import "iter"

// Filter selects items for menus and scripts. The zero Filter accepts every
// item; narrow it with WithSlot or WithFlags.
type Filter struct {
	All      bool
	Slot     *EquipSlotKind
	Required Flags
}

// AllItems is a filter that accepts everything.
func AllItems() Filter { return Filter{All: true} }

// WithSlot restricts f to items that can be equipped in slots of kind k.
func (f Filter) WithSlot(k EquipSlotKind) Filter {
	f.Slot = &k
	return f
}

// WithFlags restricts f to items carrying all of flags.
func (f Filter) WithFlags(flags Flags) Filter {
	f.Required = flags
	return f
}

// Judge reports whether it passes the filter.
func (f Filter) Judge(it Item) bool {
	if f.All {
		return true
	}
	if f.Slot != nil {
		k, ok := it.Kind.EquipSlotKind()
		if !ok || k != *f.Slot {
			return false
		}
	}
	return it.Flags.Contains(f.Required)
}

// Filtered iterates the entries of l that pass f, yielding their location
// under loc together with a copy of the entry.
func Filtered(l *ItemList, loc ListLocation, f Filter) iter.Seq2[Location, Entry] {
	return func(yield func(Location, Entry) bool) {
		for i, e := range l.All() {
			if !f.Judge(e.Item) {
				continue
			}
			if !yield(Location{List: loc, Index: i}, e) {
				return
			}
		}
	}
}
