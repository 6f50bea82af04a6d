// Package auth implements the bearer-token scheme used by the signing
// and administration endpoints. Voter tokens are minted by the
// identity provider from a shared secret as
// "voterID.hex(HMAC-SHA256(secret, voterID))", so the service can
// verify them without a callback. Ballot submission is deliberately
// outside this package: it must stay anonymous.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

type contextKey int

const voterIDKey contextKey = iota

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = fmt.Errorf("invalid bearer token")

// TokenAuth verifies voter bearer tokens against a shared secret.
type TokenAuth struct {
	secret []byte
}

// NewTokenAuth creates a verifier from the shared secret.
func NewTokenAuth(secret string) *TokenAuth {
	return &TokenAuth{secret: []byte(secret)}
}

// Token mints the bearer token for a voter. Exposed so tests and
// operator tooling can build valid credentials.
func (a *TokenAuth) Token(voterID string) string {
	return voterID + "." + hex.EncodeToString(a.mac(voterID))
}

// Verify checks a bearer token and returns the voter identity it
// carries.
func (a *TokenAuth) Verify(token string) (string, error) {
	voterID, macHex, found := strings.Cut(token, ".")
	if !found || voterID == "" {
		return "", ErrInvalidToken
	}
	mac, err := hex.DecodeString(macHex)
	if err != nil {
		return "", ErrInvalidToken
	}
	if subtle.ConstantTimeCompare(mac, a.mac(voterID)) != 1 {
		return "", ErrInvalidToken
	}
	return voterID, nil
}

func (a *TokenAuth) mac(voterID string) []byte {
	h := hmac.New(sha256.New, a.secret)
	h.Write([]byte(voterID))
	return h.Sum(nil)
}

// Middleware authenticates requests carrying an "Authorization:
// Bearer" header and stores the voter identity in the request context.
// Unauthenticated requests are rejected by onError.
func (a *TokenAuth) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			voterID, err := a.Verify(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithVoterID(r.Context(), voterID)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// WithVoterID returns a context carrying the authenticated voter.
func WithVoterID(ctx context.Context, voterID string) context.Context {
	return context.WithValue(ctx, voterIDKey, voterID)
}

// VoterID extracts the authenticated voter from the request context.
func VoterID(ctx context.Context) (string, bool) {
	voterID, ok := ctx.Value(voterIDKey).(string)
	return voterID, ok && voterID != ""
}

// AdminAuth gates administrative endpoints behind a single static
// token.
type AdminAuth struct {
	token string
}

// NewAdminAuth creates an admin verifier. An empty token disables
// administrative access entirely.
func NewAdminAuth(token string) *AdminAuth {
	return &AdminAuth{token: token}
}

// Verify checks a bearer token against the configured admin token.
func (a *AdminAuth) Verify(token string) error {
	if a.token == "" {
		return fmt.Errorf("administrative access disabled")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}

// Middleware rejects requests that do not carry the admin token.
func (a *AdminAuth) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			if err := a.Verify(token); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
