package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTokenRoundTrip(t *testing.T) {
	c := qt.New(t)
	a := NewTokenAuth("sekret")

	token := a.Token("alice")
	voterID, err := a.Verify(token)
	c.Assert(err, qt.IsNil)
	c.Assert(voterID, qt.Equals, "alice")
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	c := qt.New(t)
	a := NewTokenAuth("sekret")

	for _, token := range []string{
		"",
		"alice",                   // no MAC
		"alice.",                  // empty MAC
		"alice.zzzz",              // not hex
		"alice.deadbeef",          // wrong MAC
		NewTokenAuth("other").Token("alice"), // wrong secret
		".deadbeef",               // empty voter
	} {
		_, err := a.Verify(token)
		c.Assert(err, qt.Equals, ErrInvalidToken, qt.Commentf("token %q", token))
	}

	// A token minted for one voter must not verify as another.
	token := a.Token("alice")
	voterID, err := a.Verify(token)
	c.Assert(err, qt.IsNil)
	c.Assert(voterID, qt.Not(qt.Equals), "bob")
}

func TestMiddleware(t *testing.T) {
	c := qt.New(t)
	a := NewTokenAuth("sekret")

	var gotVoter string
	handler := a.Middleware(func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVoter, _ = VoterID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Malformed scheme.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Valid token reaches the handler with the voter in context.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+a.Token("alice"))
	handler.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(gotVoter, qt.Equals, "alice")
}

func TestAdminAuth(t *testing.T) {
	c := qt.New(t)

	admin := NewAdminAuth("topsecret")
	c.Assert(admin.Verify("topsecret"), qt.IsNil)
	c.Assert(admin.Verify("wrong"), qt.Equals, ErrInvalidToken)

	// Empty configured token disables admin access even for empty input.
	disabled := NewAdminAuth("")
	c.Assert(disabled.Verify(""), qt.IsNotNil)
	c.Assert(disabled.Verify("anything"), qt.IsNotNil)
}
