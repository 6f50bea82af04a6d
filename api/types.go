package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/lfavole/voting/types"
)

// SignRequest is the body of the blind-signing endpoint: the base64
// encoding of the blinded digest, a 256-byte big-endian integer.
type SignRequest struct {
	BlindedMessage string `json:"blinded_message"`
}

// SignResponse carries the raw RSA signature over the blinded digest.
// Status is set to "already_signed_retry" when the response replays a
// memoized signature.
type SignResponse struct {
	Signature string `json:"signature"`
	Status    string `json:"status,omitempty"`
}

// StatusAlreadySignedRetry marks an idempotent replay of a blind
// signature.
const StatusAlreadySignedRetry = "already_signed_retry"

// SubmitResponse acknowledges a ballot submission. IsNew is false when
// the submission was an idempotent retry of a stored ballot.
type SubmitResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	BulletinID string `json:"bulletin_id"`
	IsNew      bool   `json:"is_new"`
}

// UrnHashResponse is the content-addressed digest of the whole urn.
type UrnHashResponse struct {
	Hash string `json:"hash"`
}

// BallotEntry is one row of the public ballot listing. The result is
// replayed verbatim so auditors can re-verify every signature.
type BallotEntry struct {
	Token           string          `json:"token"`
	Result          json.RawMessage `json:"result"`
	ServerSignature string          `json:"server_signature"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BallotListResponse lists the urn of an election, tokens ascending.
type BallotListResponse struct {
	ElectionID uuid.UUID     `json:"election_id"`
	Ballots    []BallotEntry `json:"ballots"`
}

// ElectionRequest is the administrative election-creation body.
type ElectionRequest struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	StartTime     time.Time          `json:"startTime"`
	EndTime       time.Time          `json:"endTime"`
	Kind          types.ElectionKind `json:"kind"`
	AllowedVoters []string           `json:"allowedVoters"`
	Propositions  []string           `json:"propositions,omitempty"`
	Candidates    []types.Candidate  `json:"candidates,omitempty"`
}

// ElectionResponse is the public view of an election. Key material and
// the voter roll never leave the server through this type.
type ElectionResponse struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	StartTime    time.Time          `json:"startTime"`
	EndTime      time.Time          `json:"endTime"`
	Kind         types.ElectionKind `json:"kind"`
	Propositions []string           `json:"propositions,omitempty"`
	Candidates   []types.Candidate  `json:"candidates,omitempty"`
}

// ElectionListResponse lists the elections currently open for the
// authenticated voter.
type ElectionListResponse struct {
	Elections []ElectionResponse `json:"elections"`
}

// FormChoice is one selectable option of a form field.
type FormChoice struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// FormWidget describes how a field should be rendered.
type FormWidget struct {
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs"`
}

// FormField is the client-side rendering spec of one ballot field.
type FormField struct {
	Label    string       `json:"label"`
	Value    string       `json:"value"`
	HelpText string       `json:"help_text"`
	Errors   []string     `json:"errors"`
	Widget   FormWidget   `json:"widget"`
	Choices  []FormChoice `json:"choices,omitempty"`
}

// FormSpec is the ballot form of an election: everything a client
// needs to render the ballot, and nothing about key material.
type FormSpec struct {
	Title      string               `json:"title"`
	Fields     map[string]FormField `json:"fields"`
	FieldOrder []string             `json:"field_order"`
}

func electionResponse(election *types.Election) ElectionResponse {
	return ElectionResponse{
		ID:           election.ID,
		Name:         election.Name,
		Description:  election.Description,
		StartTime:    election.StartTime,
		EndTime:      election.EndTime,
		Kind:         election.Kind,
		Propositions: election.Propositions,
		Candidates:   election.Candidates,
	}
}
