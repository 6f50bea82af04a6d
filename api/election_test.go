package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"

	"github.com/lfavole/voting/types"
)

func TestCreateElection(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)

	now := time.Now().UTC()
	body, err := json.Marshal(ElectionRequest{
		Name:          "board 2026",
		Description:   "annual board election",
		StartTime:     now,
		EndTime:       now.Add(24 * time.Hour),
		Kind:          types.ElectionKindPerson,
		AllowedVoters: []string{"alice", "bob"},
		Candidates: []types.Candidate{
			{ID: "a", Name: "Candidate A"},
			{ID: "b", Name: "Candidate B"},
		},
	})
	c.Assert(err, qt.IsNil)

	// No admin token.
	rec := ta.request(http.MethodPost, ElectionsEndpoint, "", "application/json", strings.NewReader(string(body)))
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Voter tokens are not admin tokens.
	rec = ta.request(http.MethodPost, ElectionsEndpoint, ta.voters.Token("alice"), "application/json", strings.NewReader(string(body)))
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Admin token works.
	rec = ta.request(http.MethodPost, ElectionsEndpoint, testAdminToken, "application/json", strings.NewReader(string(body)))
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	var created ElectionResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &created), qt.IsNil)
	c.Assert(created.Name, qt.Equals, "board 2026")
	c.Assert(created.ID, qt.Not(qt.Equals), uuid.Nil)
	c.Assert(created.Candidates, qt.HasLen, 2)

	// The stored election is retrievable.
	stored, err := ta.storage.Election(created.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.AllowedVoters, qt.DeepEquals, []string{"alice", "bob"})
}

func TestCreateElectionValidation(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	now := time.Now().UTC()

	for name, req := range map[string]ElectionRequest{
		"missing name": {
			StartTime: now, EndTime: now.Add(time.Hour), Kind: types.ElectionKindChoice,
		},
		"inverted window": {
			Name: "x", StartTime: now.Add(time.Hour), EndTime: now, Kind: types.ElectionKindChoice,
		},
		"unknown kind": {
			Name: "x", StartTime: now, EndTime: now.Add(time.Hour), Kind: "ranked",
		},
		"person without candidates": {
			Name: "x", StartTime: now, EndTime: now.Add(time.Hour), Kind: types.ElectionKindPerson,
		},
		"duplicate candidate": {
			Name: "x", StartTime: now, EndTime: now.Add(time.Hour), Kind: types.ElectionKindPerson,
			Candidates: []types.Candidate{{ID: "a", Name: "A"}, {ID: "a", Name: "A2"}},
		},
	} {
		body, err := json.Marshal(req)
		c.Assert(err, qt.IsNil)
		rec := ta.request(http.MethodPost, ElectionsEndpoint, testAdminToken, "application/json", strings.NewReader(string(body)))
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest, qt.Commentf("case %q", name))
	}
}

func TestElectionMetadataNeverLeaksSecrets(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})

	// Force key generation so the stored election carries PEM material.
	_ = ta.publicKey(t, election.ID)

	path := EndpointWithParam(ElectionEndpoint, ElectionIDURLParam, election.ID.String())
	rec := ta.request(http.MethodGet, path, "", "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	body := rec.Body.String()
	c.Assert(body, qt.Contains, election.Name)
	c.Assert(strings.Contains(body, "PRIVATE KEY"), qt.IsFalse)
	c.Assert(strings.Contains(body, "alice"), qt.IsFalse) // voter roll stays private
}

func TestListElectionsForVoter(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)

	open := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})
	_ = ta.newElection(t, types.ElectionKindChoice, []string{"carol"})

	// Requires authentication.
	rec := ta.request(http.MethodGet, ElectionsEndpoint, "", "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	var resp ElectionListResponse
	code := ta.getJSON(t, ElectionsEndpoint, ta.voters.Token("alice"), &resp)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(resp.Elections, qt.HasLen, 1)
	c.Assert(resp.Elections[0].ID, qt.Equals, open.ID)
}

func TestChoiceResults(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"v1", "v2", "v3"})

	for voter, vote := range map[string]string{
		"v1": `{"choice":true}`,
		"v2": `{"choice":true}`,
		"v3": `{"choice":false}`,
	} {
		token := "tk-" + voter
		sig := ta.obtainSignature(t, voter, election.ID, token, vote)
		rec := ta.submit(election.ID, token, vote, sig)
		c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	}

	var results struct {
		Kind         types.ElectionKind `json:"kind"`
		TotalBallots int                `json:"totalBallots"`
		Yes          int                `json:"yes"`
		No           int                `json:"no"`
		DontKnow     int                `json:"dontKnow"`
	}
	path := EndpointWithParam(ResultsEndpoint, ElectionIDURLParam, election.ID.String())
	code := ta.getJSON(t, path, "", &results)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(results.Kind, qt.Equals, types.ElectionKindChoice)
	c.Assert(results.TotalBallots, qt.Equals, 3)
	c.Assert(results.Yes, qt.Equals, 2)
	c.Assert(results.No, qt.Equals, 1)
	c.Assert(results.DontKnow, qt.Equals, 0)
}

func TestPersonResults(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	voters := []string{"v1", "v2", "v3", "v4", "v5"}
	election := ta.newElection(t, types.ElectionKindPerson, voters,
		types.Candidate{ID: "A", Name: "A"},
		types.Candidate{ID: "B", Name: "B"},
	)

	gradesA := []int{1, 2, 2, 3, 4}
	gradesB := []int{3, 3, 4, 5, 6}
	for i, voter := range voters {
		raw, err := json.Marshal(types.PersonsResult{Persons: map[string]int{
			"A": gradesA[i],
			"B": gradesB[i],
		}})
		c.Assert(err, qt.IsNil)
		token := "tk-" + voter
		sig := ta.obtainSignature(t, voter, election.ID, token, string(raw))
		rec := ta.submit(election.ID, token, string(raw), sig)
		c.Assert(rec.Code, qt.Equals, http.StatusCreated, qt.Commentf("body: %s", rec.Body.String()))
	}

	var results struct {
		Kind       types.ElectionKind `json:"kind"`
		Candidates []struct {
			ID          string  `json:"id"`
			Median      int     `json:"median"`
			MedianLabel string  `json:"medianLabel"`
			PPlus       float64 `json:"pPlus"`
			PMinus      float64 `json:"pMinus"`
		} `json:"candidates"`
	}
	path := EndpointWithParam(ResultsEndpoint, ElectionIDURLParam, election.ID.String())
	code := ta.getJSON(t, path, "", &results)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(results.Candidates, qt.HasLen, 2)
	c.Assert(results.Candidates[0].ID, qt.Equals, "A")
	c.Assert(results.Candidates[0].Median, qt.Equals, 2)
	c.Assert(results.Candidates[0].MedianLabel, qt.Equals, "Bien")
	c.Assert(results.Candidates[1].ID, qt.Equals, "B")
	c.Assert(results.Candidates[1].Median, qt.Equals, 4)
}

func TestBallotForm(t *testing.T) {
	c := qt.New(t)
	ta := newTestAPI(t)
	election := ta.newElection(t, types.ElectionKindChoice, []string{"alice"})
	path := EndpointWithParam(FormEndpoint, ElectionIDURLParam, election.ID.String())

	// Requires authentication.
	rec := ta.request(http.MethodGet, path, "", "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Requires eligibility.
	rec = ta.request(http.MethodGet, path, ta.voters.Token("mallory"), "", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusForbidden)

	var spec FormSpec
	code := ta.getJSON(t, path, ta.voters.Token("alice"), &spec)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(spec.Title, qt.Equals, election.Name)
	c.Assert(spec.FieldOrder, qt.DeepEquals, []string{"token", "choice"})
	c.Assert(spec.Fields["choice"].Choices, qt.HasLen, 3)
	c.Assert(spec.Fields["choice"].Choices[0].Value, qt.Equals, "yes")

	// Person elections expose one graded field per candidate.
	person := ta.newElection(t, types.ElectionKindPerson, []string{"alice"},
		types.Candidate{ID: "a", Name: "Candidate A"})
	path = EndpointWithParam(FormEndpoint, ElectionIDURLParam, person.ID.String())
	code = ta.getJSON(t, path, ta.voters.Token("alice"), &spec)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(spec.FieldOrder, qt.DeepEquals, []string{"token", "person_a"})
	c.Assert(spec.Fields["person_a"].Choices, qt.HasLen, 7)
	c.Assert(spec.Fields["person_a"].Choices[0].Display, qt.Equals, "Très Bien")
	c.Assert(spec.Fields["person_a"].Label, qt.Equals, "Candidate A")
}
