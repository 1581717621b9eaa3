package main

import (
	"context"
	"log"

	"dukira/internal/api"
	"dukira/internal/config"
	"dukira/internal/database"
	"dukira/internal/events"
	"dukira/internal/images"
	"dukira/internal/logger"
	"dukira/internal/scoring"
	"dukira/internal/storage"
	syncsvc "dukira/internal/sync"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Collaborators
	publisher := events.NewPublisher(cfg.KafkaBrokers, logger)
	defer publisher.Close()

	blobs, err := storage.NewS3Store(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage: %v", err)
	}

	scorer := buildScorer(cfg, logger)

	syncer := syncsvc.New(db.DB, logger, publisher, cfg.SyncPageSize)
	pipeline := images.New(db.DB, logger, blobs, scorer, cfg.ImageScoreThreshold)

	// Initialize API server
	server := api.New(cfg, logger, db, syncer, pipeline, blobs)

	// Start server
	logger.Info("Starting API server on port " + cfg.APIPort)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func buildScorer(cfg *config.Config, logger *logger.Logger) scoring.Scorer {
	if cfg.UseTestModel {
		return scoring.NewTestModel(logger)
	}
	if cfg.AIModelAPIURL == "" {
		logger.Warn("Scoring oracle not configured; images will be approved by default")
		return nil
	}
	return scoring.NewOracleClient(cfg.AIModelAPIURL, cfg.AIModelAPIKey, logger)
}
