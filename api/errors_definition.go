//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 403, 404 or 405, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound       = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody          = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedElectionID    = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed election ID")}
	ErrElectionNotFound       = Error{Code: 40004, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election not found")}
	ErrMissingBlindedMessage  = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing blinded message")}
	ErrAlreadySignedDifferent = Error{Code: 40006, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("already obtained a signature for a different ballot")}
	ErrUnauthorized           = Error{Code: 40007, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("unauthorized")}
	ErrNotEligible            = Error{Code: 40008, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("not eligible to vote")}
	ErrInvalidSignature       = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedSignature     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed signature encoding")}
	ErrNonCanonicalPayload    = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ballot payload is not canonical JSON")}
	ErrBallotConflict         = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("a different ballot already exists for this token")}
	ErrBallotNotFound         = Error{Code: 40013, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("ballot not found")}
	ErrMissingToken           = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing ballot token")}
	ErrInvalidElection        = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid election definition")}
	ErrMethodNotAllowed       = Error{Code: 40016, HTTPstatus: http.StatusMethodNotAllowed, Err: fmt.Errorf("method not allowed")}
	ErrBlindedMessageRange    = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("blinded message out of range")}
	ErrElectionAlreadyExists  = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election already exists")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
