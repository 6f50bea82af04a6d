package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/prefixeddb"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/types"
)

// ballotKey builds the (election, token) key. The election ID is a
// fixed 16 bytes, so iterating the election prefix yields ballots in
// ascending token byte order.
func ballotKey(electionID uuid.UUID, token string) []byte {
	key := make([]byte, 0, len(electionID)+len(token))
	key = append(key, electionID[:]...)
	return append(key, token...)
}

// PushBallot stores a ballot in the urn. The returned flag is true
// when a new row was written. If a ballot with the same token already
// exists with identical result and signature, the push is an
// idempotent retry and (false, nil) is returned; if the contents
// differ, ErrBallotConflict is returned and nothing is written.
func (s *Storage) PushBallot(ballot *types.Ballot) (bool, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), ballotPrefix)
	defer wTx.Discard()

	key := ballotKey(ballot.ElectionID, ballot.Token)
	existing, err := wTx.Get(key)
	switch {
	case err == nil:
		stored := new(types.Ballot)
		if err := DecodeArtifact(existing, stored); err != nil {
			return false, fmt.Errorf("decode stored ballot: %w", err)
		}
		if bytes.Equal(stored.Result, ballot.Result) && stored.ServerSignature == ballot.ServerSignature {
			return false, nil
		}
		return false, ErrBallotConflict
	case !errors.Is(err, db.ErrKeyNotFound):
		return false, fmt.Errorf("check ballot existence: %w", err)
	}

	if ballot.ID == uuid.Nil {
		ballot.ID = uuid.New()
	}
	if ballot.CreatedAt.IsZero() {
		ballot.CreatedAt = time.Now().UTC()
	}
	val, err := EncodeArtifact(ballot)
	if err != nil {
		return false, fmt.Errorf("encode ballot: %w", err)
	}
	if err := wTx.Set(key, val); err != nil {
		return false, fmt.Errorf("store ballot: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return false, fmt.Errorf("commit ballot: %w", err)
	}
	log.Infow("ballot stored in urn",
		"electionID", ballot.ElectionID.String(),
		"token", ballot.Token)
	return true, nil
}

// Ballot retrieves a ballot by its token. Returns ErrNotFound if no
// ballot carries that token.
func (s *Storage) Ballot(electionID uuid.UUID, token string) (*types.Ballot, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, ballotPrefix)
	val, err := pr.Get(ballotKey(electionID, token))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ballot: %w", err)
	}
	ballot := new(types.Ballot)
	if err := DecodeArtifact(val, ballot); err != nil {
		return nil, fmt.Errorf("decode ballot: %w", err)
	}
	return ballot, nil
}

// IterateBallots streams the ballots of an election in ascending
// token order. Iteration stops when the callback returns false.
func (s *Storage) IterateBallots(electionID uuid.UUID, callback func(*types.Ballot) bool) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, ballotPrefix)
	var decodeErr error
	err := pr.Iterate(electionID[:], func(_, val []byte) bool {
		ballot := new(types.Ballot)
		if err := DecodeArtifact(val, ballot); err != nil {
			decodeErr = fmt.Errorf("decode ballot: %w", err)
			return false
		}
		return callback(ballot)
	})
	if err != nil {
		return fmt.Errorf("iterate ballots: %w", err)
	}
	return decodeErr
}

// Ballots returns all the ballots of an election in ascending token
// order.
func (s *Storage) Ballots(electionID uuid.UUID) ([]*types.Ballot, error) {
	var out []*types.Ballot
	err := s.IterateBallots(electionID, func(ballot *types.Ballot) bool {
		out = append(out, ballot)
		return true
	})
	return out, err
}

// UrnDigest computes the hex SHA-256 of the ordered urn content:
// entries "token:result" joined by a newline, tokens ascending. The
// digest streams the database cursor, so memory stays bounded
// regardless of urn size, and is a pure function of the stored
// {(token, result)} set.
func (s *Storage) UrnDigest(electionID uuid.UUID) (string, error) {
	hasher := sha256.New()
	first := true
	err := s.IterateBallots(electionID, func(ballot *types.Ballot) bool {
		if !first {
			hasher.Write([]byte("\n"))
		}
		first = false
		hasher.Write([]byte(ballot.Token))
		hasher.Write([]byte(":"))
		hasher.Write(ballot.Result)
		return true
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
