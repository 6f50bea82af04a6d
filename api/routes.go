package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// URL parameters
	ElectionIDURLParam = "electionId" // URL parameter for election ID
	TokenURLParam      = "token"      // URL parameter for ballot token

	// Voting endpoints
	VoteBaseEndpoint  = "/vote/{" + ElectionIDURLParam + "}"
	PublicKeyEndpoint = VoteBaseEndpoint + "/public-key" // GET: PEM public key
	SignEndpoint      = VoteBaseEndpoint + "/sign"       // POST: blind-sign (auth)
	SubmitEndpoint    = VoteBaseEndpoint + "/submit"     // POST: cast ballot (anonymous)
	UrnHashEndpoint   = VoteBaseEndpoint + "/hash"       // GET: urn digest
	ResultsEndpoint   = VoteBaseEndpoint + "/results"    // GET: tally
	FormEndpoint      = VoteBaseEndpoint + "/form"       // GET: ballot form spec (auth)

	// Audit endpoints
	BallotsEndpoint = "/data/ballots/{" + ElectionIDURLParam + "}/"                        // GET: list ballots
	BallotEndpoint  = "/data/ballots/{" + ElectionIDURLParam + "}/{" + TokenURLParam + "}" // GET: one ballot

	// Election administration endpoints
	ElectionsEndpoint = "/elections"                                   // GET: list open elections (auth), POST: create (admin)
	ElectionEndpoint  = ElectionsEndpoint + "/{" + ElectionIDURLParam + "}" // GET: public election metadata
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
}
