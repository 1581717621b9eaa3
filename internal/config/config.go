package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DatabaseURL string

	// Kafka
	KafkaBrokers string

	// API Configuration
	APIPort string
	APIHost string

	// Blob storage (S3-compatible)
	StorageBucket    string
	StorageRegion    string
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string

	// Scoring oracle
	AIModelAPIURL string
	AIModelAPIKey string
	UseTestModel  bool

	// Pipeline tuning
	ImageScoreThreshold float64
	ImageBatchSize      int
	SyncPageSize        int

	// Auto-sync schedule (cron expression, with seconds)
	AutoSyncSchedule string

	// Webhook delivery
	WebhookBaseURL string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	return &Config{
		DatabaseURL:         getEnv("DATABASE_URL", "sqlite://dukira.db"),
		KafkaBrokers:        getEnv("KAFKA_BROKERS", "localhost:9092"),
		APIPort:             getEnv("API_PORT", "8080"),
		APIHost:             getEnv("API_HOST", "0.0.0.0"),
		StorageBucket:       getEnv("STORAGE_BUCKET", "dukira-product-images"),
		StorageRegion:       getEnv("STORAGE_REGION", "us-east-1"),
		StorageEndpoint:     getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey:    getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:    getEnv("STORAGE_SECRET_KEY", ""),
		AIModelAPIURL:       getEnv("AI_MODEL_API_URL", ""),
		AIModelAPIKey:       getEnv("AI_MODEL_API_KEY", ""),
		UseTestModel:        getEnvAsBool("USE_TEST_MODEL", false),
		ImageScoreThreshold: getEnvAsFloat("IMAGE_SCORE_THRESHOLD", 0.7),
		ImageBatchSize:      getEnvAsInt("IMAGE_BATCH_SIZE", 10),
		SyncPageSize:        getEnvAsInt("SYNC_PAGE_SIZE", 50),
		AutoSyncSchedule:    getEnv("AUTO_SYNC_SCHEDULE", "0 0 * * * *"),
		WebhookBaseURL:      getEnv("WEBHOOK_BASE_URL", ""),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
