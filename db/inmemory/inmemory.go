// Package inmemory implements an ephemeral db.Database kept entirely
// in memory, with optimistic conflict detection on commit. It is used
// by tests and by deployments that do not need persistence.
package inmemory

import (
	"bytes"
	"slices"
	"sync"

	"github.com/lfavole/voting/db"
)

type entry struct {
	value   []byte
	version uint64
}

// InMemoryDB implements an ephemeral in-memory db.Database.
type InMemoryDB struct {
	mu      sync.RWMutex
	data    map[string]entry
	version uint64
}

// Ensure that InMemoryDB implements the db.Database interface.
var _ db.Database = (*InMemoryDB)(nil)

// New returns a new in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string]entry)}, nil
}

func (d *InMemoryDB) Close() error   { return nil }
func (d *InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.data[string(key)]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	d.mu.RLock()
	snapshot := d.snapshot(prefix)
	d.mu.RUnlock()
	iterateSorted(snapshot, callback)
	return nil
}

// snapshot copies all the live entries under prefix. Callers must hold
// at least a read lock.
func (d *InMemoryDB) snapshot(prefix []byte) map[string][]byte {
	out := make(map[string][]byte)
	for k, ent := range d.data {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		out[k] = bytes.Clone(ent.value)
	}
	return out
}

func (d *InMemoryDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:     d,
		writes: make(map[string]*[]byte),
		reads:  make(map[string]uint64),
	}
}

// WriteTx buffers writes and records the version of every key it has
// observed. Commit fails with db.ErrConflict if any observed key has
// been modified since.
type WriteTx struct {
	db     *InMemoryDB
	writes map[string]*[]byte // nil value means delete
	reads  map[string]uint64
	closed bool
}

// Ensure that WriteTx implements the db.WriteTx interface.
var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) observe(key string) {
	if _, ok := tx.reads[key]; ok {
		return
	}
	tx.db.mu.RLock()
	tx.reads[key] = tx.db.data[key].version
	tx.db.mu.RUnlock()
}

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, db.ErrTxClosed
	}
	strKey := string(key)
	if pending, ok := tx.writes[strKey]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	tx.observe(strKey)
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.db.mu.RLock()
	merged := tx.db.snapshot(prefix)
	for k := range merged {
		tx.reads[k] = tx.db.data[k].version
	}
	tx.db.mu.RUnlock()

	for k, v := range tx.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = bytes.Clone(*v)
	}
	iterateSorted(merged, callback)
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	strKey := string(key)
	tx.observe(strKey)
	valCopy := bytes.Clone(value)
	tx.writes[strKey] = &valCopy
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	strKey := string(key)
	tx.observe(strKey)
	tx.writes[strKey] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	otherTx, ok := other.(*WriteTx)
	if !ok {
		return db.ErrConflict
	}
	for k, v := range otherTx.writes {
		if v == nil {
			tx.writes[k] = nil
			continue
		}
		valCopy := bytes.Clone(*v)
		tx.writes[k] = &valCopy
	}
	return nil
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.closed = true

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	for key, readVersion := range tx.reads {
		if tx.db.data[key].version != readVersion {
			return db.ErrConflict
		}
	}
	for key, value := range tx.writes {
		tx.db.version++
		if value == nil {
			delete(tx.db.data, key)
			// Record the deletion so later observers of the key see a
			// fresh version on re-create.
			continue
		}
		tx.db.data[key] = entry{value: bytes.Clone(*value), version: tx.db.version}
	}
	return nil
}

func (tx *WriteTx) Discard() {
	tx.closed = true
	tx.writes = map[string]*[]byte{}
	tx.reads = map[string]uint64{}
}

func iterateSorted(entries map[string][]byte, callback func(key, value []byte) bool) {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !callback([]byte(key), entries[key]) {
			return
		}
	}
}
