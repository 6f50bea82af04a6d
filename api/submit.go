package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lfavole/voting/crypto/blindrsa"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/storage"
	"github.com/lfavole/voting/types"
	"github.com/lfavole/voting/util"
)

// submitBallot accepts an anonymous ballot. The request carries no
// session: the blind signature alone authorizes storage. The signed
// message is reconstructed from the raw "data" bytes on the wire, and
// only canonical JSON is storable so the urn digest is reproducible.
func (a *API) submitBallot(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	data := r.PostFormValue("data")
	token := r.PostFormValue("token")
	signatureB64 := r.PostFormValue("signature")

	if token == "" {
		ErrMissingToken.Write(w)
		return
	}
	if !json.Valid([]byte(data)) {
		ErrMalformedBody.With("data is not valid JSON").Write(w)
		return
	}

	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		ErrMalformedSignature.WithErr(err).Write(w)
		return
	}

	pub, _, err := a.storage.FetchOrGenerateSigningKeys(election.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	// The message is the exact bytes the client hashed and blinded:
	// token, a colon, and the data field verbatim.
	message := []byte(token + ":" + data)
	if !blindrsa.VerifyUnblinded(pub, message, sig) {
		ErrInvalidSignature.With("the ballot was modified or the signature is wrong").Write(w)
		return
	}

	if !util.IsCanonicalJSON([]byte(data)) {
		ErrNonCanonicalPayload.Write(w)
		return
	}

	isNew, err := a.storage.PushBallot(&types.Ballot{
		ElectionID:      election.ID,
		Token:           token,
		Result:          json.RawMessage(data),
		ServerSignature: signatureB64,
	})
	if err != nil {
		if errors.Is(err, storage.ErrBallotConflict) {
			ErrBallotConflict.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	httpWriteJSONStatus(w, status, SubmitResponse{
		Status:     "success",
		Message:    "vote recorded",
		BulletinID: token,
		IsNew:      isNew,
	})
}

// urnHash returns the content-addressed digest of the whole urn.
func (a *API) urnHash(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	digest, err := a.storage.UrnDigest(election.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, UrnHashResponse{Hash: digest})
}

// listBallots exposes the full urn of an election for public audit.
func (a *API) listBallots(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	resp := BallotListResponse{
		ElectionID: election.ID,
		Ballots:    []BallotEntry{},
	}
	err = a.storage.IterateBallots(election.ID, func(ballot *types.Ballot) bool {
		resp.Ballots = append(resp.Ballots, BallotEntry{
			Token:           ballot.Token,
			Result:          ballot.Result,
			ServerSignature: ballot.ServerSignature,
			CreatedAt:       ballot.CreatedAt,
		})
		return true
	})
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, resp)
}

// ballot returns the stored result bytes of a single ballot, verbatim.
func (a *API) ballot(w http.ResponseWriter, r *http.Request) {
	election, err := a.electionFromRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	token := chi.URLParam(r, TokenURLParam)
	ballot, err := a.storage.Ballot(election.ID, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrBallotNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(ballot.Result); err != nil {
		log.Warnw("failed to write ballot response", "error", err)
	}
}
