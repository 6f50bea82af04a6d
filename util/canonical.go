package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CanonicalJSON returns the canonical form of a JSON document: object
// keys sorted ascending by Unicode code point, "," and ":" separators
// with no inter-token whitespace, no HTML escaping and no trailing
// newline. Numbers are preserved verbatim so that canonicalizing an
// already canonical document is the identity.
func CanonicalJSON(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	// Refuse trailing garbage after the first document.
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode canonical JSON: %w", err)
	}
	// json.Encoder appends a newline; the canonical form has none.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// IsCanonicalJSON reports whether data already is a canonical-form
// JSON document.
func IsCanonicalJSON(data []byte) bool {
	canonical, err := CanonicalJSON(data)
	if err != nil {
		return false
	}
	return bytes.Equal(data, canonical)
}
