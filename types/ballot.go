package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VoterStatus tracks the signing state of one voter in one election.
// It is the only entity linking a voter identity to an election, and
// it deliberately has no relation with any Ballot.
type VoterStatus struct {
	VoterID    string    `json:"voterId"    cbor:"0,keyasint"`
	ElectionID uuid.UUID `json:"electionId" cbor:"1,keyasint"`

	// HasSigned transitions false to true at most once. When true,
	// BlindedMessageHash and GeneratedSignature are both set.
	HasSigned bool `json:"hasSigned" cbor:"2,keyasint"`
	// BlindedMessageHash is the SHA-256 hex digest of the base64
	// blinded payload that was signed, kept to recognize retries.
	BlindedMessageHash string `json:"blindedMessageHash,omitempty" cbor:"3,keyasint,omitempty"`
	// GeneratedSignature is the base64 signature memoized so that a
	// genuine retry receives the identical bytes.
	GeneratedSignature string `json:"generatedSignature,omitempty" cbor:"4,keyasint,omitempty"`
}

// Ballot is one entry of the urn. It carries no voter identity: the
// token is chosen by the client and its only enforced property is
// uniqueness within the election.
type Ballot struct {
	ID         uuid.UUID `json:"-"     cbor:"0,keyasint"`
	ElectionID uuid.UUID `json:"-"     cbor:"1,keyasint"`
	Token      string    `json:"token" cbor:"2,keyasint"`

	// Result holds the exact canonical-JSON bytes received on the
	// wire, never a re-serialization.
	Result json.RawMessage `json:"result" cbor:"3,keyasint"`

	// ServerSignature is the base64 blind signature, retained so that
	// third parties can re-verify the urn.
	ServerSignature string    `json:"serverSignature" cbor:"4,keyasint"`
	CreatedAt       time.Time `json:"createdAt"       cbor:"5,keyasint"`
}

// ChoiceResult is the payload shape of a choice ballot: true is yes,
// false is no and null is don't-know.
type ChoiceResult struct {
	Choice *bool `json:"choice"`
}

// PersonsResult is the payload shape of a person ballot: a grade from
// 1 (best) to 7 for each candidate ID.
type PersonsResult struct {
	Persons map[string]int `json:"persons"`
}
