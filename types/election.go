package types

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ElectionKind discriminates the two supported ballot shapes.
type ElectionKind string

const (
	// ElectionKindChoice is a yes/no/don't-know vote on a proposition.
	ElectionKindChoice ElectionKind = "choice"
	// ElectionKindPerson is a majority-judgment vote grading candidates.
	ElectionKindPerson ElectionKind = "person"
)

// Valid reports whether the kind is one of the supported values.
func (k ElectionKind) Valid() bool {
	return k == ElectionKindChoice || k == ElectionKindPerson
}

// Eligibility reason tags returned by Election.CanVote.
const (
	ReasonNotStarted = "not_started"
	ReasonEnded      = "ended"
	ReasonUser       = "user"
)

// Candidate is a person that can be graded in a person election.
type Candidate struct {
	ID   string `json:"id"   cbor:"0,keyasint"`
	Name string `json:"name" cbor:"1,keyasint"`
}

// Election holds the immutable per-vote parameters. The RSA keypair
// starts empty and is generated lazily on first use; once set it is
// never rotated.
type Election struct {
	ID            uuid.UUID    `json:"id"            cbor:"0,keyasint"`
	Name          string       `json:"name"          cbor:"1,keyasint"`
	Description   string       `json:"description"   cbor:"2,keyasint"`
	StartTime     time.Time    `json:"startTime"     cbor:"3,keyasint"`
	EndTime       time.Time    `json:"endTime"       cbor:"4,keyasint"`
	AllowedVoters []string     `json:"-"             cbor:"5,keyasint"`
	Kind          ElectionKind `json:"kind"          cbor:"6,keyasint"`
	Propositions  []string     `json:"propositions,omitempty" cbor:"7,keyasint,omitempty"`
	Candidates    []Candidate  `json:"candidates,omitempty"   cbor:"8,keyasint,omitempty"`

	// PEM-encoded PKCS#1 RSA keypair, empty until first use. The
	// private key must never be serialized to JSON.
	PublicKeyPEM  string `json:"-" cbor:"9,keyasint,omitempty"`
	PrivateKeyPEM string `json:"-" cbor:"10,keyasint,omitempty"`
}

// HasKeys reports whether the RSA keypair has been generated.
func (e *Election) HasKeys() bool {
	return e.PublicKeyPEM != "" && e.PrivateKeyPEM != ""
}

// IsAllowed reports whether the voter is in the allowed voters set.
func (e *Election) IsAllowed(voterID string) bool {
	return voterID != "" && slices.Contains(e.AllowedVoters, voterID)
}

// CanVote checks whether the voter may take part in the election at
// the given time. On refusal it returns one of the reason tags
// ReasonNotStarted, ReasonEnded or ReasonUser.
func (e *Election) CanVote(voterID string, now time.Time) (bool, string) {
	if now.Before(e.StartTime) {
		return false, ReasonNotStarted
	}
	if now.After(e.EndTime) {
		return false, ReasonEnded
	}
	if !e.IsAllowed(voterID) {
		return false, ReasonUser
	}
	return true, ""
}
