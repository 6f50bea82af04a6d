// Package api exposes the voting service over HTTP: blind signing,
// anonymous ballot submission, public auditing and election
// administration.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lfavole/voting/auth"
	"github.com/lfavole/voting/log"
	stg "github.com/lfavole/voting/storage"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	// AuthSecret is the shared secret the identity provider mints
	// voter bearer tokens from.
	AuthSecret string
	// AdminToken guards election creation. Empty disables the
	// administrative surface.
	AdminToken string
}

// API type represents the API HTTP server.
type API struct {
	router    *chi.Mux
	storage   *stg.Storage
	voterAuth *auth.TokenAuth
	adminAuth *auth.AdminAuth
}

// New creates a new API instance with the given configuration and
// initializes its router. The caller owns the listener lifecycle; see
// service.APIService.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.AuthSecret == "" {
		return nil, fmt.Errorf("missing voter auth secret")
	}
	a := &API{
		storage:   conf.Storage,
		voterAuth: auth.NewTokenAuth(conf.AuthSecret),
		adminAuth: auth.NewAdminAuth(conf.AdminToken),
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router, for mounting and for tests.
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})

	// public voting endpoints
	log.Infow("register handler", "endpoint", PublicKeyEndpoint, "method", "GET")
	a.router.Get(PublicKeyEndpoint, a.publicKey)
	log.Infow("register handler", "endpoint", SubmitEndpoint, "method", "POST")
	a.router.Post(SubmitEndpoint, a.submitBallot)
	log.Infow("register handler", "endpoint", UrnHashEndpoint, "method", "GET")
	a.router.Get(UrnHashEndpoint, a.urnHash)
	log.Infow("register handler", "endpoint", ResultsEndpoint, "method", "GET")
	a.router.Get(ResultsEndpoint, a.results)

	// audit endpoints
	log.Infow("register handler", "endpoint", BallotsEndpoint, "method", "GET")
	a.router.Get(BallotsEndpoint, a.listBallots)
	log.Infow("register handler", "endpoint", BallotEndpoint, "method", "GET")
	a.router.Get(BallotEndpoint, a.ballot)

	// public election metadata
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.election)

	// voter-authenticated endpoints
	a.router.Group(func(r chi.Router) {
		r.Use(a.voterAuth.Middleware(unauthorizedHandler))
		log.Infow("register handler", "endpoint", SignEndpoint, "method", "POST", "auth", "voter")
		r.Post(SignEndpoint, a.signBlindedMessage)
		log.Infow("register handler", "endpoint", FormEndpoint, "method", "GET", "auth", "voter")
		r.Get(FormEndpoint, a.ballotForm)
		log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "GET", "auth", "voter")
		r.Get(ElectionsEndpoint, a.listElections)
	})

	// administrative endpoints
	a.router.Group(func(r chi.Router) {
		r.Use(a.adminAuth.Middleware(unauthorizedHandler))
		log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST", "auth", "admin")
		r.Post(ElectionsEndpoint, a.createElection)
	})
}

func unauthorizedHandler(w http.ResponseWriter, _ *http.Request, err error) {
	ErrUnauthorized.WithErr(err).Write(w)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrMethodNotAllowed.Write(w)
	})
	a.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		ErrResourceNotFound.Write(w)
	})

	a.registerHandlers()
}
