package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}
	getEnvOr := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		return fallback
	}

	cfg := Config{
		Port:         getEnv("PORT"),
		StoreBackend: getEnvOr("STORE_BACKEND", "sqlite"),
		ProjectID:    getEnvOr("GCP_PROJECT", ""),
		CountDraws:   getEnvOr("COUNT_DRAWS", "true") == "true",
		RetryBudget:  intEnv("TX_RETRY_BUDGET", 0),
		Backfill: BackfillConfig{
			PageSize:    intEnv("BACKFILL_PAGE_SIZE", 0),
			MaxBatchOps: intEnv("BACKFILL_MAX_BATCH_OPS", 0),
			Pause:       durationEnv("BACKFILL_PAUSE", 0),
		},
	}

	switch cfg.StoreBackend {
	case "sqlite":
		cfg.DBName = getEnv("DB_NAME")
		cfg.Turso = TursoConfig{
			PrimaryURL: getEnvOr("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvOr("TURSO_AUTH_TOKEN", ""),
		}
	case "mongo":
		cfg.Mongo = MongoConfig{
			URI:      getEnv("MONGO_URI"),
			Database: getEnvOr("MONGO_DATABASE", "kickerstats"),
		}
	case "memory":
		// Nothing to configure, used for local development and tests.
	default:
		log.Fatalf("Error: Unknown STORE_BACKEND %q (want sqlite, mongo or memory).", cfg.StoreBackend)
	}
	return cfg
}

func intEnv(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Error: Environment variable %s must be an integer, got %q.", key, value)
	}
	return n
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Error: Environment variable %s must be a duration, got %q.", key, value)
	}
	return d
}
