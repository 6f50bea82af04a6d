/*
Package storage provides the persistent storage layer of the voting
service over a key-value database with prefixed namespaces:

  - e/  : electionID → Election (parameters, allowed voters and the
    lazily generated RSA keypair in PEM form)
  - vs/ : electionID + voterID → VoterStatus (has-signed flag,
    blinded-message hash and memoized signature)
  - b/  : electionID + token → Ballot (the urn; append-only, keyed by
    the client-chosen token so iteration yields tokens in ascending
    byte order)

All writers serialize on a single storage lock: the signing
idempotency check and the urn uniqueness check are atomic with their
subsequent writes.
*/
package storage

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/log"
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrKeyAlreadyExists is returned when creating an artifact that
	// already exists.
	ErrKeyAlreadyExists = errors.New("key already exists")
	// ErrAlreadySigned is returned by MarkSigned when the voter status
	// already holds a signature; the caller must re-read the status and
	// follow the idempotency branch.
	ErrAlreadySigned = errors.New("voter has already signed")
	// ErrBallotConflict is returned when a ballot token is reused with
	// different contents.
	ErrBallotConflict = errors.New("ballot token already used with different content")
)

// Key prefixes.
var (
	electionPrefix    = []byte("e/")
	voterStatusPrefix = []byte("vs/")
	ballotPrefix      = []byte("b/")
)

const electionCacheSize = 256

// Storage manages elections, voter statuses and the ballot urn.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	// cache holds recently loaded elections; entries are invalidated
	// when the election artifact is rewritten (key generation).
	cache *lru.Cache[string, []byte]
	// keygen deduplicates concurrent first-use RSA key generations
	// per election.
	keygen singleflight.Group
}

// New creates a new Storage instance over the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, []byte](electionCacheSize)
	if err != nil {
		log.Fatalf("failed to create election cache: %v", err)
	}
	return &Storage{
		db:    database,
		cache: cache,
	}
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.db.Close()
}
