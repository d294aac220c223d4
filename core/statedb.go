package core

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// tombstone marks a deleted key inside an overlay layer, distinguishing
// "absent" from "deleted here, present below" during a walk down the
// layer stack (spec.md §4.1).
var tombstone = []byte{0xde, 0xad}

func isTombstone(v []byte) bool { return bytes.Equal(v, tombstone) }

// layer is one overlay in the State DB's layer stack: a plain Go map keyed
// on the raw keys.go byte-prefixed key, holding either a value or the
// tombstone sentinel.
type layer struct {
	entries map[string][]byte
}

func newLayer() *layer {
	return &layer{entries: make(map[string][]byte)}
}

// StateDB is the layered key/value overlay of spec.md §4.1: a base
// persistent store plus a stack of in-memory layers, the top of which
// receives every write until it is solidified back into the base store or
// discarded wholesale (rollback of a failed/dry-run block).
type StateDB struct {
	mu     sync.RWMutex
	base   PersistentStore
	layers []*layer
}

// NewStateDB wraps base with an empty layer stack. The caller must push at
// least one layer with NewLayer before writing.
func NewStateDB(base PersistentStore) *StateDB {
	return &StateDB{base: base}
}

// NewLayer pushes a fresh overlay atop the stack; subsequent Put/Delete
// calls land in this layer until another is pushed or it is solidified or
// discarded (spec.md §4.1 "new_layer").
func (s *StateDB) NewLayer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append(s.layers, newLayer())
}

// Put writes value into the top layer. It panics if no layer has been
// pushed, mirroring the reference's "write without an open layer is a
// programmer error" invariant.
func (s *StateDB) Put(key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.top().entries[string(key)] = append([]byte(nil), value...)
}

// Delete marks key deleted in the top layer without touching layers below
// or the base store; a later Get sees the tombstone and reports absence.
func (s *StateDB) Delete(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.top().entries[string(key)] = tombstone
}

func (s *StateDB) top() *layer {
	if len(s.layers) == 0 {
		panic("core: StateDB write with no open layer")
	}
	return s.layers[len(s.layers)-1]
}

// Get walks the layer stack top-down, returning the first hit (value or
// tombstone-as-absent); it falls through to the base store only once every
// layer has been consulted and found no entry for key.
func (s *StateDB) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k := string(key)
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i].entries[k]; ok {
			if isTombstone(v) {
				return nil, false, nil
			}
			return append([]byte(nil), v...), true, nil
		}
	}
	return s.base.Get(key)
}

// SolidifyLayer merges the top layer into the one below it (or into the
// base store, if it is the only layer), then pops it off the stack. This
// is the only path by which an overlay write becomes durable (spec.md
// §4.1 "solidify_layer").
func (s *StateDB) SolidifyLayer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return fmt.Errorf("%w: solidify with no open layer", ErrIntegrity)
	}
	top := s.layers[len(s.layers)-1]
	s.layers = s.layers[:len(s.layers)-1]

	if len(s.layers) > 0 {
		below := s.layers[len(s.layers)-1]
		for k, v := range top.entries {
			below.entries[k] = v
		}
		return nil
	}
	batch := s.base.Batch()
	for k, v := range top.entries {
		if isTombstone(v) {
			batch.Delete([]byte(k))
		} else {
			batch.Set([]byte(k), v)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("%w: solidify to base store: %v", ErrIO, err)
	}
	return nil
}

// DiscardLastLayer drops the top layer's writes entirely, the rollback
// path used when a transaction or whole block fails validation/execution
// (spec.md §4.1 "discard_last_layer") or when dry_run_transaction tears
// down its throwaway layer.
func (s *StateDB) DiscardLastLayer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.layers) == 0 {
		return fmt.Errorf("%w: discard with no open layer", ErrIntegrity)
	}
	s.layers = s.layers[:len(s.layers)-1]
	return nil
}

// Depth reports how many layers are currently open.
func (s *StateDB) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

// Iterate walks every live key under prefix across the full layer stack
// and the base store, applying overlay shadowing/tombstones, and invokes
// fn for each surviving key in ascending order. Used by maintenance scans
// (witness roster, proposal roster) that must see the combined view.
func (s *StateDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(map[string][]byte)
	seen := make(map[string]bool)

	it, err := s.base.NewIter(prefix)
	if err != nil {
		return fmt.Errorf("%w: base store iterate: %v", ErrIO, err)
	}
	for it.Next() {
		k := string(it.Key())
		merged[k] = append([]byte(nil), it.Value()...)
		seen[k] = true
	}
	if err := it.Close(); err != nil {
		return fmt.Errorf("%w: close base iterator: %v", ErrIO, err)
	}

	for _, l := range s.layers {
		for k, v := range l.entries {
			if !bytes.HasPrefix([]byte(k), prefix) {
				continue
			}
			merged[k] = v
			seen[k] = true
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := merged[k]
		if isTombstone(v) {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}
