package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kickerhub/kickerstats/internal/aggregator"
	"github.com/kickerhub/kickerstats/internal/backfill"
	"github.com/kickerhub/kickerstats/internal/config"
	"github.com/kickerhub/kickerstats/internal/database"
	"github.com/kickerhub/kickerstats/internal/docstore"
	server "github.com/kickerhub/kickerstats/internal/http"
	"github.com/kickerhub/kickerstats/internal/ledger"
	"github.com/kickerhub/kickerstats/internal/metrics"
	"github.com/kickerhub/kickerstats/internal/pubsub"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %s", err)
	}
	defer func() {
		log.Info("Closing store")
		if err := store.Close(context.Background()); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()
	storeInitDuration := time.Since(startTime)
	log.Info("Store initialization time recorded", "duration_ms", storeInitDuration.Milliseconds())

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	var publisher pubsub.PubSubClient
	if cfg.ProjectID != "" {
		publisher = pubsub.New(cfg.ProjectID)
	} else {
		log.Info("No GCP project configured, publishing disabled")
		publisher = pubsub.NewNoop()
	}

	engine := aggregator.New(store, metricsSvc, aggregator.Options{
		RetryBudget: cfg.RetryBudget,
		CountDraws:  cfg.CountDraws,
	})
	ledgerSvc := ledger.New(store, engine, publisher, metricsSvc)
	backfillJob := backfill.New(store, metricsSvc, backfill.Options{
		PageSize:    cfg.Backfill.PageSize,
		MaxBatchOps: cfg.Backfill.MaxBatchOps,
		Pause:       cfg.Backfill.Pause,
		CountDraws:  cfg.CountDraws,
	})

	s := server.NewServer(
		ledgerSvc,
		backfillJob,
		metricsSvc,
		metricsHandler,
		cfg,
	)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}

// openStore builds the configured document store backend.
func openStore(cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
		if err != nil {
			return nil, err
		}
		return docstore.NewSQLite(db), nil
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return docstore.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	default:
		return docstore.NewMemory(), nil
	}
}
