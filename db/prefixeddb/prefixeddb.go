// Package prefixeddb wraps a db.Database (or individual readers and
// write transactions) so that every key is transparently namespaced
// under a fixed prefix. The storage layer uses it to keep elections,
// voter statuses and ballots in separate keyspaces of one database.
package prefixeddb

import (
	"github.com/lfavole/voting/db"
)

// PrefixedDatabase wraps a db.Database prepending a prefix to all keys.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

// Ensure that PrefixedDatabase implements the db.Database interface.
var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a db.Database which namespaces all keys
// under the given prefix.
func NewPrefixedDatabase(d db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: d, prefix: prefix}
}

func (d *PrefixedDatabase) Close() error   { return d.db.Close() }
func (d *PrefixedDatabase) Compact() error { return d.db.Compact() }

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(join(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(d.db, d.prefix, prefix, callback)
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// NewPrefixedReader returns a db.Reader which namespaces all reads
// under the given prefix.
func NewPrefixedReader(r db.Reader, prefix []byte) *PrefixedReader {
	return &PrefixedReader{reader: r, prefix: prefix}
}

// PrefixedReader wraps a db.Reader prepending a prefix to all keys.
type PrefixedReader struct {
	reader db.Reader
	prefix []byte
}

var _ db.Reader = (*PrefixedReader)(nil)

func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.reader.Get(join(r.prefix, key))
}

func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(r.reader, r.prefix, prefix, callback)
}

// NewPrefixedWriteTx returns a db.WriteTx which namespaces all
// operations under the given prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: prefix}
}

// PrefixedWriteTx wraps a db.WriteTx prepending a prefix to all keys.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

func (tx *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return tx.tx.Get(join(tx.prefix, key))
}

func (tx *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iteratePrefixed(tx.tx, tx.prefix, prefix, callback)
}

func (tx *PrefixedWriteTx) Set(key, value []byte) error {
	return tx.tx.Set(join(tx.prefix, key), value)
}

func (tx *PrefixedWriteTx) Delete(key []byte) error {
	return tx.tx.Delete(join(tx.prefix, key))
}

func (tx *PrefixedWriteTx) Apply(other db.WriteTx) error {
	if otherTx, ok := other.(*PrefixedWriteTx); ok {
		return tx.tx.Apply(otherTx.tx)
	}
	return tx.tx.Apply(other)
}

func (tx *PrefixedWriteTx) Commit() error { return tx.tx.Commit() }
func (tx *PrefixedWriteTx) Discard()      { tx.tx.Discard() }

// Unwrap returns the underlying write transaction, so that writes in
// different namespaces can be committed atomically together.
func (tx *PrefixedWriteTx) Unwrap() db.WriteTx { return tx.tx }

func join(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

// iteratePrefixed iterates r under namespace+prefix, stripping the
// namespace from the keys passed to the callback.
func iteratePrefixed(r db.Reader, namespace, prefix []byte, callback func(key, value []byte) bool) error {
	full := join(namespace, prefix)
	return r.Iterate(full, func(key, value []byte) bool {
		return callback(key[len(namespace):], value)
	})
}
