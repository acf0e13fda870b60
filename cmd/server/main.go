package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/lesion-track-server/internal/api"
	"github.com/lesion-track-server/internal/config"
	"github.com/lesion-track-server/internal/domain"
	"github.com/lesion-track-server/internal/repository"
	"github.com/lesion-track-server/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	tracker, err := service.NewTrackerService(logger, service.TrackerConfig{
		StabilityThreshold: cfg.Tracking.StabilityThreshold,
		Guideline:          cfg.Guideline,
		Priors:             cfg.Priors,
		Likelihood:         cfg.Likelihood,
		ReportCacheSize:    cfg.Tracking.ReportCacheSize,
	}, store)
	if err != nil {
		log.Fatalf("Failed to create tracker service: %v", err)
	}

	if err := tracker.Restore(context.Background()); err != nil {
		log.Fatalf("Failed to restore ledger from store: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      cfg.Server.Host,
		"port":      cfg.Server.Port,
		"storage":   cfg.Storage.Driver,
		"guideline": cfg.Guideline.Name,
	}).Info("Starting lesion tracking server")

	server := api.NewServer(logger, &cfg.Server, tracker)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	logger.Info("Server stopped")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newStore(cfg domain.StorageConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := repository.OpenPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
