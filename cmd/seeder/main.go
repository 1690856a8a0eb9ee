package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kickerhub/kickerstats/internal/aggregator"
	"github.com/kickerhub/kickerstats/internal/database"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/ledger"
	"github.com/kickerhub/kickerstats/internal/metrics"
	"github.com/kickerhub/kickerstats/internal/pubsub"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := make(map[string]string)
	required := []string{"DB_NAME"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	config["TURSO_PRIMARY_URL"] = os.Getenv("TURSO_PRIMARY_URL")
	config["TURSO_AUTH_TOKEN"] = os.Getenv("TURSO_AUTH_TOKEN")
	return config
}

func main() {
	log.Info("Starting ledger seeder...")
	cfg := loadConfig()

	db, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	store := docstore.NewSQLite(db)
	defer store.Close(context.Background())

	metricsSvc := metrics.NewService()
	engine := aggregator.New(store, metricsSvc, aggregator.Options{CountDraws: true})
	ledgerSvc := ledger.New(store, engine, pubsub.NewNoop(), metricsSvc)

	players := []string{
		"player-1", "player-2", "player-3", "player-4",
		"player-5", "player-6", "player-7", "player-8",
	}

	const numMatches = 500
	log.Info("Preparing to record seeded matches...", "total", numMatches)
	startTime := time.Now()

	ctx := context.Background()
	for i := 0; i < numMatches; i++ {
		rand.Shuffle(len(players), func(a, b int) { players[a], players[b] = players[b], players[a] })
		winnerScore := kicker.MaxScore
		if rand.Intn(2) == 0 {
			winnerScore = 10
		}
		loserScore := rand.Intn(10)
		home, away := winnerScore, loserScore
		if rand.Intn(2) == 0 {
			home, away = away, home
		}
		matchDate := time.Now().UTC().Add(-time.Duration(rand.Intn(90*24)) * time.Hour)

		_, err := ledgerSvc.AddMatch(ctx, ledger.AddMatchInput{
			HomeTeamIDs: []string{players[0], players[1]},
			AwayTeamIDs: []string{players[2], players[3]},
			Score:       kicker.Score{Home: home, Away: away},
			MatchDate:   matchDate.Format(time.RFC3339),
		})
		if err != nil {
			log.Fatalf("Failed to record seeded match %d: %s", i, err)
		}
		if (i+1)%100 == 0 {
			log.Info("Progress", "recorded", i+1)
		}
	}

	duration := time.Since(startTime)
	log.Info("Seeding complete.", "matches", numMatches, "duration", duration.String())
	fmt.Printf("Recorded %d matches in %s\n", numMatches, duration)
}
