// Package service wires the long-running pieces of the voting server
// together: the storage instance and the HTTP API listener.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lfavole/voting/api"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/storage"
)

const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage    *storage.Storage
	API        *api.API
	mu         sync.Mutex
	server     *http.Server
	host       string
	port       int
	authSecret string
	adminToken string
}

// NewAPI creates a new APIService instance.
func NewAPI(storage *storage.Storage, host string, port int, authSecret, adminToken string, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		storage:    storage,
		host:       host,
		port:       port,
		authSecret: authSecret,
		adminToken: adminToken,
	}
}

// Start begins the API server. It returns an error if the service is
// already running or if the listener cannot be opened.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.server != nil {
		return fmt.Errorf("service already running")
	}

	var err error
	as.API, err = api.New(&api.APIConfig{
		Host:       as.host,
		Port:       as.port,
		Storage:    as.storage,
		AuthSecret: as.authSecret,
		AdminToken: as.adminToken,
	})
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", as.host, as.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	as.server = &http.Server{
		Handler:           as.API.Router(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("starting API server", "host", as.host, "port", as.port)
		if err := as.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()
	return nil
}

// Stop halts the API server, draining in-flight requests.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := as.server.Shutdown(ctx); err != nil {
		log.Warnw("API server shutdown", "error", err)
	}
	as.server = nil
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
