package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	Port         string
	StoreBackend string
	DBName       string
	Turso        TursoConfig
	Mongo         MongoConfig
	ProjectID     string
	CountDraws    bool
	RetryBudget   int
	Backfill      BackfillConfig
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
type MongoConfig struct {
	URI      string
	Database string
}
type BackfillConfig struct {
	PageSize    int
	MaxBatchOps int
	Pause       time.Duration
}
