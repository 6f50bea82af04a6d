package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lfavole/voting/auth"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/storage"
	"github.com/lfavole/voting/tally"
	"github.com/lfavole/voting/types"
)

// publicKey serves the PEM public key of an election, generating the
// keypair lazily on first access.
func (a *API) publicKey(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	pemData, err := a.storage.PublicKeyPEM(election.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWritePEM(w, pemData)
}

// election serves the public metadata of one election. Key material
// and the voter roll are never included.
func (a *API) election(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	httpWriteJSON(w, electionResponse(election))
}

// listElections lists the elections currently open for the
// authenticated voter.
func (a *API) listElections(w http.ResponseWriter, r *http.Request) {
	voterID, ok := auth.VoterID(r.Context())
	if !ok {
		ErrUnauthorized.Write(w)
		return
	}
	elections, err := a.storage.ElectionsForVoter(voterID, time.Now())
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	resp := ElectionListResponse{Elections: []ElectionResponse{}}
	for _, election := range elections {
		resp.Elections = append(resp.Elections, electionResponse(election))
	}
	httpWriteJSON(w, resp)
}

// createElection creates an election from an administrative request.
func (a *API) createElection(w http.ResponseWriter, r *http.Request) {
	var req ElectionRequest
	if err := jsonDecodeBody(r, &req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := validateElectionRequest(&req); err != nil {
		ErrInvalidElection.WithErr(err).Write(w)
		return
	}

	election := &types.Election{
		ID:            uuid.New(),
		Name:          req.Name,
		Description:   req.Description,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		AllowedVoters: req.AllowedVoters,
		Kind:          req.Kind,
		Propositions:  req.Propositions,
		Candidates:    req.Candidates,
	}
	if err := a.storage.NewElection(election); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			ErrElectionAlreadyExists.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Infow("election created",
		"electionID", election.ID.String(),
		"kind", string(election.Kind),
		"name", election.Name)
	httpWriteJSONStatus(w, http.StatusCreated, electionResponse(election))
}

func validateElectionRequest(req *ElectionRequest) error {
	if req.Name == "" {
		return fmt.Errorf("missing name")
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return fmt.Errorf("missing time window")
	}
	if !req.EndTime.After(req.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}
	switch req.Kind {
	case types.ElectionKindChoice:
		if len(req.Candidates) > 0 {
			return fmt.Errorf("choice elections cannot carry candidates")
		}
	case types.ElectionKindPerson:
		if len(req.Candidates) == 0 {
			return fmt.Errorf("person elections need at least one candidate")
		}
		seen := map[string]bool{}
		for _, candidate := range req.Candidates {
			if candidate.ID == "" {
				return fmt.Errorf("candidate with empty ID")
			}
			if seen[candidate.ID] {
				return fmt.Errorf("duplicate candidate ID %q", candidate.ID)
			}
			seen[candidate.ID] = true
		}
	default:
		return fmt.Errorf("unknown election kind %q", req.Kind)
	}
	return nil
}

// results serves the tally of an election, majority judgment for
// person elections and plain counts for choice elections.
func (a *API) results(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	ballots, err := a.storage.Ballots(election.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	results, err := tally.Compute(election, ballots)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, results)
}

// ballotForm serves the form spec the client renders the ballot from:
// field labels, choices and ordering, never any key material. Only an
// eligible voter of an open election gets the form.
func (a *API) ballotForm(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	voterID, ok := auth.VoterID(r.Context())
	if !ok {
		ErrUnauthorized.Write(w)
		return
	}
	if ok, reason := election.CanVote(voterID, time.Now()); !ok {
		ErrNotEligible.With(reason).Write(w)
		return
	}
	httpWriteJSON(w, buildFormSpec(election))
}

func buildFormSpec(election *types.Election) FormSpec {
	spec := FormSpec{
		Title: election.Name,
		Fields: map[string]FormField{
			"token": {
				Label:  "Token",
				Errors: []string{},
				Widget: FormWidget{Type: "text", Attrs: map[string]string{"required": "required"}},
			},
		},
		FieldOrder: []string{"token"},
	}

	switch election.Kind {
	case types.ElectionKindChoice:
		spec.Fields["choice"] = FormField{
			Label:  "Choice",
			Errors: []string{},
			Widget: FormWidget{Type: "radio", Attrs: map[string]string{"required": "required"}},
			Choices: []FormChoice{
				{Value: "yes", Display: "Yes"},
				{Value: "no", Display: "No"},
				{Value: "dont_know", Display: "Don't know"},
			},
		}
		spec.FieldOrder = append(spec.FieldOrder, "choice")
	case types.ElectionKindPerson:
		grades := make([]FormChoice, 0, int(types.GradeWorst))
		for grade := types.GradeBest; grade <= types.GradeWorst; grade++ {
			grades = append(grades, FormChoice{
				Value:   strconv.Itoa(int(grade)),
				Display: grade.String(),
			})
		}
		for _, candidate := range election.Candidates {
			name := "person_" + candidate.ID
			spec.Fields[name] = FormField{
				Label:   candidate.Name,
				Errors:  []string{},
				Widget:  FormWidget{Type: "radio", Attrs: map[string]string{"required": "required"}},
				Choices: grades,
			}
			spec.FieldOrder = append(spec.FieldOrder, name)
		}
	}
	return spec
}
