package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dukira/internal/config"
	"dukira/internal/database"
	"dukira/internal/events"
	"dukira/internal/images"
	"dukira/internal/logger"
	"dukira/internal/scoring"
	"dukira/internal/storage"
	syncsvc "dukira/internal/sync"
	"dukira/internal/worker"
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

	var scorer scoring.Scorer
	if cfg.UseTestModel {
		scorer = scoring.NewTestModel(logger)
	} else if cfg.AIModelAPIURL != "" {
		scorer = scoring.NewOracleClient(cfg.AIModelAPIURL, cfg.AIModelAPIKey, logger)
	} else {
		logger.Warn("Scoring oracle not configured; images will be approved by default")
	}

	syncer := syncsvc.New(db.DB, logger, publisher, cfg.SyncPageSize)
	pipeline := images.New(db.DB, logger, blobs, scorer, cfg.ImageScoreThreshold)

	// Initialize worker
	w := worker.New(cfg, logger, syncer, pipeline)

	// Start worker
	logger.Info("Starting worker...")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	w.Stop()
}
