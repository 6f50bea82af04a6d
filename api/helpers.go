package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/storage"
	"github.com/lfavole/voting/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	httpWriteJSONStatus(w, http.StatusOK, data)
}

// httpWriteJSONStatus writes a JSON response with an explicit HTTP
// status code.
func httpWriteJSONStatus(w http.ResponseWriter, status int, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWritePEM streams key material in PEM form.
func httpWritePEM(w http.ResponseWriter, pemData string) {
	w.Header().Set("Content-Type", "application/x-pem-file")
	if _, err := w.Write([]byte(pemData)); err != nil {
		log.Warnw("failed to write PEM response", "error", err)
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// jsonDecodeBody decodes the request body as JSON into dst.
func jsonDecodeBody(r *http.Request, dst any) error {
	defer func() {
		_ = r.Body.Close()
	}()
	return json.NewDecoder(r.Body).Decode(dst)
}

// electionID extracts and parses the election ID URL parameter.
func electionID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, ElectionIDURLParam)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrMalformedElectionID.Withf("could not parse %q: %v", raw, err)
	}
	return id, nil
}

// electionFromRequest loads the election addressed by the request URL,
// mapping parse and lookup failures to API errors.
func (a *API) electionFromRequest(r *http.Request) (*types.Election, error) {
	id, err := electionID(r)
	if err != nil {
		return nil, err
	}
	election, err := a.storage.Election(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrElectionNotFound.Withf("%s", id)
		}
		return nil, ErrGenericInternalServerError.WithErr(err)
	}
	return election, nil
}

// writeAPIError sends err to the client, wrapping unknown error types
// as generic internal failures.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr Error
	if errors.As(err, &apiErr) {
		apiErr.Write(w)
		return
	}
	ErrGenericInternalServerError.WithErr(err).Write(w)
}
