package storage

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/prefixeddb"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/types"
)

// NewElection stores a new election. The election ID must be set and
// unused; ErrKeyAlreadyExists is returned otherwise.
func (s *Storage) NewElection(election *types.Election) error {
	if election.ID == uuid.Nil {
		return fmt.Errorf("election ID is not set")
	}
	if !election.Kind.Valid() {
		return fmt.Errorf("invalid election kind %q", election.Kind)
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), electionPrefix)
	defer wTx.Discard()

	key := election.ID[:]
	if _, err := wTx.Get(key); err == nil {
		return ErrKeyAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("check election existence: %w", err)
	}

	val, err := EncodeArtifact(election)
	if err != nil {
		return fmt.Errorf("encode election: %w", err)
	}
	if err := wTx.Set(key, val); err != nil {
		return fmt.Errorf("store election: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit election: %w", err)
	}
	s.cache.Add(election.ID.String(), val)

	log.Infow("new election stored",
		"electionID", election.ID.String(),
		"kind", string(election.Kind),
		"name", election.Name)
	return nil
}

// Election retrieves an election by ID. Returns ErrNotFound if it does
// not exist.
func (s *Storage) Election(id uuid.UUID) (*types.Election, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.electionUnsafe(id)
}

// electionUnsafe loads an election without locking, using the encoded
// artifact cache.
func (s *Storage) electionUnsafe(id uuid.UUID) (*types.Election, error) {
	val, ok := s.cache.Get(id.String())
	if !ok {
		pr := prefixeddb.NewPrefixedReader(s.db, electionPrefix)
		var err error
		val, err = pr.Get(id[:])
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("get election: %w", err)
		}
		s.cache.Add(id.String(), val)
	}
	election := new(types.Election)
	if err := DecodeArtifact(val, election); err != nil {
		return nil, fmt.Errorf("decode election: %w", err)
	}
	return election, nil
}

// setElectionUnsafe rewrites an election artifact and refreshes the
// cache, without locking.
func (s *Storage) setElectionUnsafe(election *types.Election) error {
	val, err := EncodeArtifact(election)
	if err != nil {
		return fmt.Errorf("encode election: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), electionPrefix)
	defer wTx.Discard()
	if err := wTx.Set(election.ID[:], val); err != nil {
		return fmt.Errorf("store election: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit election: %w", err)
	}
	s.cache.Add(election.ID.String(), val)
	return nil
}

// ElectionsForVoter returns the elections whose time window contains
// now and whose allowed voters include voterID, ordered by name.
func (s *Storage) ElectionsForVoter(voterID string, now time.Time) ([]*types.Election, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var out []*types.Election
	pr := prefixeddb.NewPrefixedReader(s.db, electionPrefix)
	err := pr.Iterate(nil, func(_, val []byte) bool {
		election := new(types.Election)
		if err := DecodeArtifact(val, election); err != nil {
			log.Warnw("skipping undecodable election", "error", err.Error())
			return true
		}
		if ok, _ := election.CanVote(voterID, now); ok {
			out = append(out, election)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate elections: %w", err)
	}
	slices.SortFunc(out, func(a, b *types.Election) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}
