package world

import (
	"encoding/json"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/kasuganosora/rpgscript/game/script"
)

// VarTable holds the global named variables written by scripts. Values are
// type-erased script values. Safe for concurrent use.
type VarTable struct {
	mu   sync.RWMutex
	vars map[string]script.Value
}

// NewVarTable creates an empty VarTable.
func NewVarTable() *VarTable {
	return &VarTable{vars: make(map[string]script.Value)}
}

// Get returns the value of a global variable.
func (t *VarTable) Get(name string) (script.Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vars[name]
	return v, ok
}

// Set sets the value of a global variable.
func (t *VarTable) Set(name string, v script.Value) {
	t.mu.Lock()
	t.vars[name] = v
	t.mu.Unlock()
}

// Delete removes a variable so that it reads as unknown again.
func (t *VarTable) Delete(name string) {
	t.mu.Lock()
	delete(t.vars, name)
	t.mu.Unlock()
}

// Len returns the number of variables set.
func (t *VarTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vars)
}

// All iterates a snapshot of the table in name order.
func (t *VarTable) All() iter.Seq2[string, script.Value] {
	t.mu.RLock()
	snap := maps.Clone(t.vars)
	t.mu.RUnlock()
	return func(yield func(string, script.Value) bool) {
		for _, k := range slices.Sorted(maps.Keys(snap)) {
			if !yield(k, snap[k]) {
				return
			}
		}
	}
}

func (t *VarTable) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(t.vars)
}

func (t *VarTable) UnmarshalJSON(b []byte) error {
	vars := make(map[string]script.Value)
	if err := json.Unmarshal(b, &vars); err != nil {
		return err
	}
	t.mu.Lock()
	t.vars = vars
	t.mu.Unlock()
	return nil
}
