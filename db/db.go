// Package db defines the key-value database interface used by the
// voting service storage, along with the options shared by all the
// available implementations (pebbledb, inmemory, mongodb).
package db

import "errors"

var (
	// ErrKeyNotFound is returned when a key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by WriteTx.Commit when a transaction
	// conflicts with a concurrently committed one.
	ErrConflict = errors.New("transaction conflict")
	// ErrTxClosed is returned when using a WriteTx that was already
	// committed or discarded.
	ErrTxClosed = errors.New("transaction already committed or discarded")
)

// Supported database types.
const (
	TypePebble   = "pebble"
	TypeInMemory = "inmemory"
	TypeMongo    = "mongodb"
)

// Options contains the options passed to the database constructors.
// Path is a filesystem directory for the on-disk backends and the
// database name for the mongodb backend (the server URL comes from
// the MONGODB_URL environment variable).
type Options struct {
	Path string
}

// Database is the interface to be implemented by all the database
// backends. Reads outside a transaction observe the last committed
// state.
type Database interface {
	Reader
	// WriteTx creates a new write transaction.
	WriteTx() WriteTx
	// Close closes the database.
	Close() error
	// Compact triggers a database compaction, if supported.
	Compact() error
}

// Reader contains the read-only database methods.
type Reader interface {
	// Get retrieves the value for the given key. If the key does not
	// exist, returns ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with all key-value pairs whose key starts
	// with prefix, in ascending key order. The prefix is not stripped
	// from the keys. Iteration stops when the callback returns false.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a write transaction. It buffers writes until Commit, and
// reads observe both the committed state and the buffered writes.
// Either Commit or Discard must be called once.
type WriteTx interface {
	Reader
	// Set adds a key-value pair, overwriting any previous value.
	Set(key, value []byte) error
	// Delete removes a key. Deleting a non-existing key is not an error.
	Delete(key []byte) error
	// Apply copies all the buffered writes from another transaction
	// into this one.
	Apply(other WriteTx) error
	// Commit atomically applies the buffered writes to the database.
	Commit() error
	// Discard drops the buffered writes. Calling it after Commit is a
	// no-op, so it is safe to use with defer.
	Discard()
}
