// Package pebbledb implements the db.Database interface on top of the
// cockroachdb/pebble key-value store. This is the default persistent
// backend of the voting service.
package pebbledb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/lfavole/voting/db"
)

// PebbleDB implements db.Database over a pebble store.
type PebbleDB struct {
	db *pebble.DB
}

// Ensure that PebbleDB implements the db.Database interface.
var _ db.Database = (*PebbleDB)(nil)

// New opens or creates a pebble database at opts.Path.
func New(opts db.Options) (*PebbleDB, error) {
	pdb, err := pebble.Open(opts.Path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", opts.Path, err)
	}
	return &PebbleDB{db: pdb}, nil
}

func (d *PebbleDB) Close() error {
	return d.db.Close()
}

func (d *PebbleDB) Compact() error {
	// Compact the whole keyspace.
	return d.db.Compact(nil, bytes.Repeat([]byte{0xff}, 32), true)
}

func (d *PebbleDB) Get(key []byte) ([]byte, error) {
	val, closer, err := d.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	out := bytes.Clone(val)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *PebbleDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	iter, err := d.db.NewIter(iterOptions(prefix))
	if err != nil {
		return err
	}
	defer func() { _ = iter.Close() }()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())) {
			break
		}
	}
	return iter.Error()
}

func (d *PebbleDB) WriteTx() db.WriteTx {
	return &WriteTx{batch: d.db.NewIndexedBatch()}
}

// iterOptions bounds an iterator to the keys starting with prefix.
func iterOptions(prefix []byte) *pebble.IterOptions {
	if len(prefix) == 0 {
		return &pebble.IterOptions{}
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	}
}

// prefixUpperBound returns the smallest key greater than every key
// with the given prefix, or nil if no such key exists (all 0xff).
func prefixUpperBound(prefix []byte) []byte {
	upper := bytes.Clone(prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] != 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// WriteTx implements db.WriteTx over an indexed pebble batch. Note
// that a pebble batch does not detect conflicts: reads observe the
// database state at read time plus the writes buffered in the batch.
type WriteTx struct {
	batch  *pebble.Batch
	closed bool
}

// Ensure that WriteTx implements the db.WriteTx interface.
var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, db.ErrTxClosed
	}
	val, closer, err := tx.batch.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	out := bytes.Clone(val)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	iter, err := tx.batch.NewIter(iterOptions(prefix))
	if err != nil {
		return err
	}
	defer func() { _ = iter.Close() }()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())) {
			break
		}
	}
	return iter.Error()
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	return tx.batch.Set(key, value, nil)
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	return tx.batch.Delete(key, nil)
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	if tx.closed {
		return db.ErrTxClosed
	}
	otherTx, ok := other.(*WriteTx)
	if !ok {
		return fmt.Errorf("can only apply a pebbledb.WriteTx")
	}
	return tx.batch.Apply(otherTx.batch, nil)
}

func (tx *WriteTx) Commit() error {
	if tx.closed {
		return db.ErrTxClosed
	}
	tx.closed = true
	if err := tx.batch.Commit(pebble.Sync); err != nil {
		_ = tx.batch.Close()
		return err
	}
	return tx.batch.Close()
}

func (tx *WriteTx) Discard() {
	if tx.closed {
		return
	}
	tx.closed = true
	_ = tx.batch.Close()
}
