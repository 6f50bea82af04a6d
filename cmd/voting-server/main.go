package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lfavole/voting/db/metadb"
	"github.com/lfavole/voting/log"
	"github.com/lfavole/voting/service"
	"github.com/lfavole/voting/storage"
)

// Services holds all the running services
type Services struct {
	Storage *storage.Storage
	API     *service.APIService
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting voting-server", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup services
	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Open the key-value store
	database, err := metadb.New(cfg.DB.Type, filepath.Join(cfg.Datadir, cfg.DB.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	services.Storage = storage.New(database)
	log.Infow("database initialized", "type", cfg.DB.Type, "datadir", cfg.Datadir)

	// Start the API service
	services.API = service.NewAPI(
		services.Storage,
		cfg.API.Host,
		cfg.API.Port,
		cfg.Auth.Secret,
		cfg.Auth.AdminToken,
		false,
	)
	if err := services.API.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}
	if cfg.Auth.AdminToken == "" {
		log.Warnw("administrative endpoints are disabled", "reason", "no auth.admintoken configured")
	}

	return services, nil
}

// shutdownServices gracefully stops all services
func shutdownServices(services *Services) {
	if services.API != nil {
		services.API.Stop()
	}
	if services.Storage != nil {
		if err := services.Storage.Close(); err != nil {
			log.Warnw("failed to close storage", "error", err)
		}
	}
	log.Info("shutdown complete")
}
