package api

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lfavole/voting/auth"
	"github.com/lfavole/voting/crypto/blindrsa"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/storage"
)

// signBlindedMessage produces a blind RSA signature for the
// authenticated voter, at most once per election. A retry carrying the
// same blinded message replays the memoized signature; a different
// blinded message after a successful sign is the single-vote violation
// and is refused.
func (a *API) signBlindedMessage(w http.ResponseWriter, r *http.Request) {
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

	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if req.BlindedMessage == "" {
		ErrMissingBlindedMessage.Write(w)
		return
	}

	// The idempotency check hashes the base64 text as received, not
	// the decoded bytes: the comparison must match what the client
	// will resend on a retry.
	incoming := sha256.Sum256([]byte(req.BlindedMessage))
	incomingHash := hex.EncodeToString(incoming[:])

	status, err := a.storage.GetOrCreateVoterStatus(election.ID, voterID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	if status.HasSigned {
		a.replayOrRefuse(w, status.BlindedMessageHash, incomingHash, status.GeneratedSignature)
		return
	}

	blinded, err := base64.StdEncoding.DecodeString(req.BlindedMessage)
	if err != nil {
		ErrMalformedBody.Withf("invalid base64 blinded message: %v", err).Write(w)
		return
	}
	_, priv, err := a.storage.FetchOrGenerateSigningKeys(election.ID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	sig, err := blindrsa.SignBlinded(priv, blinded)
	if err != nil {
		ErrBlindedMessageRange.WithErr(err).Write(w)
		return
	}
	sigB64 := base64.StdEncoding.EncodeToString(sig)

	// Persist before responding: a client that loses the response can
	// retry and hit the memoized branch.
	stored, err := a.storage.MarkSigned(election.ID, voterID, incomingHash, sigB64)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadySigned) {
			// A concurrent sign won the race; replay its outcome.
			a.replayOrRefuse(w, stored.BlindedMessageHash, incomingHash, stored.GeneratedSignature)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}

	log.Infow("blind signature issued", "electionID", election.ID.String())
	httpWriteJSON(w, SignResponse{Signature: sigB64})
}

// replayOrRefuse resolves a signing request against an already-signed
// voter status: an identical blinded message gets the memoized
// signature back, anything else is a second-ballot attempt.
func (a *API) replayOrRefuse(w http.ResponseWriter, storedHash, incomingHash, signature string) {
	if storedHash == incomingHash {
		httpWriteJSON(w, SignResponse{
			Signature: signature,
			Status:    StatusAlreadySignedRetry,
		})
		return
	}
	ErrAlreadySignedDifferent.Write(w)
}
