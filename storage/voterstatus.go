package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/prefixeddb"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/types"
)

// voterStatusKey builds the composite (election, voter) key. The
// election ID is a fixed 16 bytes, so the voter ID can follow raw.
func voterStatusKey(electionID uuid.UUID, voterID string) []byte {
	key := make([]byte, 0, len(electionID)+len(voterID))
	key = append(key, electionID[:]...)
	return append(key, voterID...)
}

// VoterStatus retrieves the status of a voter in an election. Returns
// ErrNotFound if the voter never attempted to sign.
func (s *Storage) VoterStatus(electionID uuid.UUID, voterID string) (*types.VoterStatus, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.voterStatusUnsafe(electionID, voterID)
}

func (s *Storage) voterStatusUnsafe(electionID uuid.UUID, voterID string) (*types.VoterStatus, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, voterStatusPrefix)
	val, err := pr.Get(voterStatusKey(electionID, voterID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get voter status: %w", err)
	}
	status := new(types.VoterStatus)
	if err := DecodeArtifact(val, status); err != nil {
		return nil, fmt.Errorf("decode voter status: %w", err)
	}
	return status, nil
}

// GetOrCreateVoterStatus retrieves the status of a voter in an
// election, creating an unsigned row on first access.
func (s *Storage) GetOrCreateVoterStatus(electionID uuid.UUID, voterID string) (*types.VoterStatus, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	status, err := s.voterStatusUnsafe(electionID, voterID)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	status = &types.VoterStatus{
		VoterID:    voterID,
		ElectionID: electionID,
	}
	if err := s.setVoterStatusUnsafe(status); err != nil {
		return nil, err
	}
	return status, nil
}

// MarkSigned records the signature produced for a voter, flipping
// HasSigned exactly once. If the voter status already holds a
// signature (a concurrent sign won the race), the stored status is
// returned along with ErrAlreadySigned and nothing is written; the
// caller must follow the idempotency branch against it.
func (s *Storage) MarkSigned(electionID uuid.UUID, voterID, blindedHash, signature string) (*types.VoterStatus, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	status, err := s.voterStatusUnsafe(electionID, voterID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		status = &types.VoterStatus{
			VoterID:    voterID,
			ElectionID: electionID,
		}
	}
	if status.HasSigned {
		return status, ErrAlreadySigned
	}

	status.HasSigned = true
	status.BlindedMessageHash = blindedHash
	status.GeneratedSignature = signature
	if err := s.setVoterStatusUnsafe(status); err != nil {
		return nil, err
	}
	log.Debugw("voter marked as signed", "electionID", electionID.String())
	return status, nil
}

func (s *Storage) setVoterStatusUnsafe(status *types.VoterStatus) error {
	val, err := EncodeArtifact(status)
	if err != nil {
		return fmt.Errorf("encode voter status: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), voterStatusPrefix)
	defer wTx.Discard()
	if err := wTx.Set(voterStatusKey(status.ElectionID, status.VoterID), val); err != nil {
		return fmt.Errorf("store voter status: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit voter status: %w", err)
	}
	return nil
}
