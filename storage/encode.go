package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// artifactEncMode is the deterministic CBOR encoding mode used for all
// stored artifacts.
var artifactEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor enc mode: %v", err))
	}
	return em
}()

// EncodeArtifact encodes an artifact into deterministic CBOR.
func EncodeArtifact(a any) ([]byte, error) {
	return artifactEncMode.Marshal(a)
}

// DecodeArtifact decodes a CBOR-encoded artifact into out.
func DecodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}
