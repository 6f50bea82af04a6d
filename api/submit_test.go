package api

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/lfavole/voting/crypto/blindrsa"
	"github.com/lfavole/voting/types"
)

func TestHappyPathChoiceVote(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	const (
		token = "tk-abc"
		data  = `{"choice":true}`
	)
	sigB64 := ta.obtainSignature(t, "alice", election.ID, token, data)

	// First submission creates the ballot.
	rec := ta.submit(election.ID, token, data, sigB64)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	var resp SubmitResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.Status, qt.Equals, "success")
	c.Assert(resp.IsNew, qt.IsTrue)
	c.Assert(resp.BulletinID, qt.Equals, token)

	// A second identical submission is an accepted retry.
	rec = ta.submit(election.ID, token, data, sigB64)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.IsNew, qt.IsFalse)

	// The stored result comes back verbatim.
	path := EndpointWithParam(BallotEndpoint, ElectionIDURLParam, election.ID.String())
	path = EndpointWithParam(path, TokenURLParam, token)
	rec = ta.request(http.MethodGet, path, "", "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Equals, data)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")

	// And every stored signature re-verifies against the public key.
	pub := ta.publicKey(t, election.ID)
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	c.Assert(err, qt.IsNil)
	c.Assert(blindrsa.VerifyUnblinded(pub, []byte(token+":"+data), sig), qt.IsTrue)
}

func TestTamperedBallotRejected(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	const token = "tk-abc"
	sigB64 := ta.obtainSignature(t, "alice", election.ID, token, `{"choice":true}`)

	// An attacker flips the vote but cannot fix the signature.
	rec := ta.submit(election.ID, token, `{"choice":false}`, sigB64)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, "invalid signature")

	// Nothing was stored.
	var list BallotListResponse
	path := EndpointWithParam(BallotsEndpoint, ElectionIDURLParam, election.ID.String())
	code := ta.getJSON(t, path, "", &list)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(list.Ballots, qt.HasLen, 0)
}

func TestNonCanonicalBallotRejected(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	// The client signs a non-canonical form (space after the colon).
	// The signature verifies, but the payload is not storable.
	const (
		token = "tk-abc"
		data  = `{"choice": true}`
	)
	sigB64 := ta.obtainSignature(t, "alice", election.ID, token, data)

	rec := ta.submit(election.ID, token, data, sigB64)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, "not canonical")
}

func TestSubmitConflictingBallot(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice", "bob"})

	const token = "tk-abc"
	sigAlice := ta.obtainSignature(t, "alice", election.ID, token, `{"choice":true}`)
	rec := ta.submit(election.ID, token, `{"choice":true}`, sigAlice)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	// A validly signed but different ballot reusing the token is
	// refused: a token maps to exactly one ballot.
	sigBob := ta.obtainSignature(t, "bob", election.ID, token, `{"choice":false}`)
	rec = ta.submit(election.ID, token, `{"choice":false}`, sigBob)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(rec.Body.String(), qt.Contains, "different ballot already exists")
}

func TestSubmitBadRequests(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	// Missing token.
	rec := ta.submit(election.ID, "", `{"choice":true}`, "AAAA")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	// Invalid JSON data.
	rec = ta.submit(election.ID, "tk", `{"choice":`, "AAAA")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	// Invalid base64 signature.
	rec = ta.submit(election.ID, "tk", `{"choice":true}`, "!!nope!!")
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	// Well-formed but unsigned ballot.
	rec = ta.submit(election.ID, "tk", `{"choice":true}`,
		base64.StdEncoding.EncodeToString([]byte("garbage")))
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
}

func TestUrnHash(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice", "bob"})

	// Submit token "b" first: the digest must still order tokens
	// ascending.
	sigBob := ta.obtainSignature(t, "bob", election.ID, "b", `{"choice":false}`)
	rec := ta.submit(election.ID, "b", `{"choice":false}`, sigBob)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	sigAlice := ta.obtainSignature(t, "alice", election.ID, "a", `{"choice":true}`)
	rec = ta.submit(election.ID, "a", `{"choice":true}`, sigAlice)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	want := sha256.Sum256([]byte("a:{\"choice\":true}\nb:{\"choice\":false}"))

	var resp UrnHashResponse
	path := EndpointWithParam(UrnHashEndpoint, ElectionIDURLParam, election.ID.String())
	code := ta.getJSON(t, path, "", &resp)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(resp.Hash, qt.Equals, hex.EncodeToString(want[:]))

	// The listing follows the same ordering.
	var list BallotListResponse
	path = EndpointWithParam(BallotsEndpoint, ElectionIDURLParam, election.ID.String())
	code = ta.getJSON(t, path, "", &list)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(list.Ballots, qt.HasLen, 2)
	c.Assert(list.Ballots[0].Token, qt.Equals, "a")
	c.Assert(list.Ballots[1].Token, qt.Equals, "b")
	c.Assert(list.Ballots[0].ServerSignature, qt.Not(qt.Equals), "")
}

func TestBallotNotFound(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	path := EndpointWithParam(BallotEndpoint, ElectionIDURLParam, election.ID.String())
	path = EndpointWithParam(path, TokenURLParam, "missing")
	rec := ta.request(http.MethodGet, path, "", "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}
