package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/lfavole/voting/types"
)

func TestPushBallotIdempotency(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)
	defer func() { _ = stg.Close() }()

	election := mkChoiceElection("alice")
	ensureElection(t, stg, election)

	ballot := &types.Ballot{
		ElectionID:      election.ID,
		Token:           "tok-1",
		Result:          json.RawMessage(`{"choice":true}`),
		ServerSignature: "123456",
	}
	isNew, err := stg.PushBallot(ballot)
	c.Assert(err, qt.IsNil)
	c.Assert(isNew, qt.IsTrue)
	c.Assert(ballot.ID.String(), qt.Not(qt.Equals), "00000000-0000-0000-0000-000000000000")
	c.Assert(ballot.CreatedAt.IsZero(), qt.IsFalse)

	// Identical retry: accepted, nothing new written.
	retry := &types.Ballot{
		ElectionID:      election.ID,
		Token:           "tok-1",
		Result:          json.RawMessage(`{"choice":true}`),
		ServerSignature: "123456",
	}
	isNew, err = stg.PushBallot(retry)
	c.Assert(err, qt.IsNil)
	c.Assert(isNew, qt.IsFalse)

	// Same token, different result: refused.
	conflict := &types.Ballot{
		ElectionID:      election.ID,
		Token:           "tok-1",
		Result:          json.RawMessage(`{"choice":false}`),
		ServerSignature: "123456",
	}
	_, err = stg.PushBallot(conflict)
	c.Assert(err, qt.Equals, ErrBallotConflict)

	// Same token, different signature: refused too.
	conflict.Result = json.RawMessage(`{"choice":true}`)
	conflict.ServerSignature = "654321"
	_, err = stg.PushBallot(conflict)
	c.Assert(err, qt.Equals, ErrBallotConflict)

	// The stored ballot is the original.
	stored, err := stg.Ballot(election.ID, "tok-1")
	c.Assert(err, qt.IsNil)
	c.Assert(string(stored.Result), qt.Equals, `{"choice":true}`)
	c.Assert(stored.ServerSignature, qt.Equals, "123456")

	_, err = stg.Ballot(election.ID, "missing")
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestBallotsAscendingTokenOrder(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)
	defer func() { _ = stg.Close() }()

	election := mkChoiceElection("alice")
	ensureElection(t, stg, election)

	// Insert out of order; iteration must come back sorted by token.
	for _, token := range []string{"c", "a", "b"} {
		_, err := stg.PushBallot(&types.Ballot{
			ElectionID:      election.ID,
			Token:           token,
			Result:          json.RawMessage(`{"choice":true}`),
			ServerSignature: "1",
		})
		c.Assert(err, qt.IsNil)
	}

	ballots, err := stg.Ballots(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ballots, qt.HasLen, 3)
	c.Assert(ballots[0].Token, qt.Equals, "a")
	c.Assert(ballots[1].Token, qt.Equals, "b")
	c.Assert(ballots[2].Token, qt.Equals, "c")
}

func TestBallotsIsolatedPerElection(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)
	defer func() { _ = stg.Close() }()

	first := mkChoiceElection("alice")
	ensureElection(t, stg, first)
	second := mkChoiceElection("alice")
	ensureElection(t, stg, second)

	_, err := stg.PushBallot(&types.Ballot{
		ElectionID:      first.ID,
		Token:           "tok",
		Result:          json.RawMessage(`{"choice":true}`),
		ServerSignature: "1",
	})
	c.Assert(err, qt.IsNil)

	ballots, err := stg.Ballots(second.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ballots, qt.HasLen, 0)
}

func TestUrnDigest(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)
	defer func() { _ = stg.Close() }()

	election := mkChoiceElection("alice")
	ensureElection(t, stg, election)

	// Empty urn hashes the empty string.
	digest, err := stg.UrnDigest(election.ID)
	c.Assert(err, qt.IsNil)
	empty := sha256.Sum256(nil)
	c.Assert(digest, qt.Equals, hex.EncodeToString(empty[:]))

	// Insert in reverse order; the digest covers tokens ascending.
	_, err = stg.PushBallot(&types.Ballot{
		ElectionID:      election.ID,
		Token:           "b",
		Result:          json.RawMessage(`{"choice":false}`),
		ServerSignature: "2",
	})
	c.Assert(err, qt.IsNil)
	_, err = stg.PushBallot(&types.Ballot{
		ElectionID:      election.ID,
		Token:           "a",
		Result:          json.RawMessage(`{"choice":true}`),
		ServerSignature: "1",
	})
	c.Assert(err, qt.IsNil)

	want := sha256.Sum256([]byte("a:{\"choice\":true}\nb:{\"choice\":false}"))
	digest, err = stg.UrnDigest(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(digest, qt.Equals, hex.EncodeToString(want[:]))

	// Digest only depends on stored content, not on call count.
	again, err := stg.UrnDigest(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.Equals, digest)
}
