package core

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
)

// KVBatch groups a set of writes applied atomically, matching the
// WAL-then-apply pattern of the teacher's ledger.go NewLedger/applyBlock.
type KVBatch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Commit() error
}

// KVIterator walks keys in a prefix in ascending order.
type KVIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Close() error
}

// PersistentStore is the chain/state DB's backend abstraction (spec.md
// §4.1/§4.2, SPEC_FULL.md §4.1 DOMAIN STACK note). pebbleStore is the
// production implementation; memStore backs tests.
type PersistentStore interface {
	Get(key []byte) ([]byte, bool, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIter(prefix []byte) (KVIterator, error)
	Batch() KVBatch
	Close() error
}

// pebbleStore persists the chain DB and the solidified state DB layer to
// disk via github.com/cockroachdb/pebble, the LSM engine wired from the
// wider retrieval pack (see DESIGN.md) to give the State/Chain DB a real
// embedded-KV backend instead of the teacher's flat WAL file.
type pebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (creating if absent) a Pebble database at dir.
func NewPebbleStore(dir string) (PersistentStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: open pebble store at %s: %v", ErrIO, dir, err)
	}
	return &pebbleStore{db: db}, nil
}

func (p *pebbleStore) Get(key []byte) ([]byte, bool, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: pebble get: %v", ErrIO, err)
	}
	out := append([]byte(nil), v...)
	_ = closer.Close()
	return out, true, nil
}

func (p *pebbleStore) Has(key []byte) (bool, error) {
	_, ok, err := p.Get(key)
	return ok, err
}

func (p *pebbleStore) Set(key, value []byte) error {
	if err := p.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("%w: pebble set: %v", ErrIO, err)
	}
	return nil
}

func (p *pebbleStore) Delete(key []byte) error {
	if err := p.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("%w: pebble delete: %v", ErrIO, err)
	}
	return nil
}

func (p *pebbleStore) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("%w: pebble close: %v", ErrIO, err)
	}
	return nil
}

func (p *pebbleStore) NewIter(prefix []byte) (KVIterator, error) {
	upper := prefixUpperBound(prefix)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("%w: pebble iter: %v", ErrIO, err)
	}
	return &pebbleIter{it: it}, nil
}

type pebbleIter struct {
	it      *pebble.Iterator
	started bool
}

func (i *pebbleIter) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *pebbleIter) Key() []byte   { return append([]byte(nil), i.it.Key()...) }
func (i *pebbleIter) Value() []byte { return append([]byte(nil), i.it.Value()...) }
func (i *pebbleIter) Close() error  { return i.it.Close() }

type pebbleBatch struct {
	db *pebble.DB
	b  *pebble.Batch
}

func (p *pebbleStore) Batch() KVBatch {
	return &pebbleBatch{db: p.db, b: p.db.NewBatch()}
}

func (b *pebbleBatch) Set(key, value []byte) { _ = b.b.Set(key, value, nil) }
func (b *pebbleBatch) Delete(key []byte)      { _ = b.b.Delete(key, nil) }
func (b *pebbleBatch) Commit() error {
	if err := b.b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("%w: pebble batch commit: %v", ErrIO, err)
	}
	return nil
}

// prefixUpperBound returns the smallest key greater than every key sharing
// prefix, i.e. prefix with its last byte incremented (carrying on 0xff),
// the standard Pebble idiom for a bounded prefix scan.
func prefixUpperBound(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil // prefix is all 0xff: unbounded
}

// memStore is an in-memory PersistentStore for unit tests.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() PersistentStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memStore) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memStore) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) NewIter(prefix []byte) (KVIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIter{store: m, keys: keys, pos: -1}, nil
}

type memIter struct {
	store *memStore
	keys  []string
	pos   int
}

func (i *memIter) Next() bool {
	i.pos++
	return i.pos < len(i.keys)
}

func (i *memIter) Key() []byte { return []byte(i.keys[i.pos]) }

func (i *memIter) Value() []byte {
	i.store.mu.RLock()
	defer i.store.mu.RUnlock()
	return append([]byte(nil), i.store.data[i.keys[i.pos]]...)
}

func (i *memIter) Close() error { return nil }

type memBatch struct {
	store *memStore
	sets  map[string][]byte
	dels  map[string]bool
}

func (m *memStore) Batch() KVBatch {
	return &memBatch{store: m, sets: make(map[string][]byte), dels: make(map[string]bool)}
}

func (b *memBatch) Set(key, value []byte) {
	b.sets[string(key)] = append([]byte(nil), value...)
	delete(b.dels, string(key))
}

func (b *memBatch) Delete(key []byte) {
	b.dels[string(key)] = true
	delete(b.sets, string(key))
}

func (b *memBatch) Commit() error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for k, v := range b.sets {
		b.store.data[k] = v
	}
	for k := range b.dels {
		delete(b.store.data, k)
	}
	return nil
}
