// Package main is the entry point for the NeuroForge minigame API server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"neuroforge/src/app/server"
	"neuroforge/src/core/ports"
	"neuroforge/src/infra/config"
	"neuroforge/src/infra/db"
	"neuroforge/src/infra/logger"
	"neuroforge/src/infra/repo"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from .env and environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info("starting application",
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"store", cfg.Store.Driver,
	)

	profiles, closeStore, err := openStore(context.Background(), cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Create and run HTTP server
	srv := server.New(cfg, log, profiles)

	// Run blocks until shutdown signal is received
	return srv.Run()
}

// openStore builds the profile repository selected by cfg.Driver.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (ports.ProfileRepository, func(), error) {
	storeLog := logger.WithComponent(log, "store")

	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := db.NewPostgres(ctx, cfg, storeLog)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return repo.NewPostgresProfileRepository(pg, storeLog), pg.Close, nil

	case config.DriverSQLite:
		lite, err := db.NewSQLite(ctx, cfg.SQLitePath, storeLog)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLiteProfileRepository(lite, storeLog), lite.Close, nil

	case config.DriverMemory:
		log.Warn("using in-memory profile store; profiles are lost on restart")
		return repo.NewMemoryProfileRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
