package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lfavole/voting/db"
	"github.com/lfavole/voting/db/metadb"
	"github.com/lfavole/voting/types"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	testdb, err := metadb.New(db.TypePebble, t.TempDir())
	if err != nil {
		t.Fatalf("metadb.New: %v", err)
	}
	return New(testdb)
}

func mkChoiceElection(voters ...string) *types.Election {
	now := time.Now().UTC()
	return &types.Election{
		ID:            uuid.New(),
		Name:          "budget 2026",
		Description:   "approve the budget",
		StartTime:     now.Add(-time.Hour),
		EndTime:       now.Add(time.Hour),
		AllowedVoters: voters,
		Kind:          types.ElectionKindChoice,
		Propositions:  []string{"Approve the 2026 budget"},
	}
}

func mkPersonElection(candidates ...string) *types.Election {
	now := time.Now().UTC()
	e := &types.Election{
		ID:        uuid.New(),
		Name:      "board election",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Kind:      types.ElectionKindPerson,
	}
	for _, name := range candidates {
		e.Candidates = append(e.Candidates, types.Candidate{ID: name, Name: name})
	}
	return e
}

func ensureElection(t *testing.T, stg *Storage, election *types.Election) {
	t.Helper()
	if err := stg.NewElection(election); err != nil {
		t.Fatalf("NewElection(%s): %v", election.ID, err)
	}
}
