package ledger

import (
	"time"

	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/metrics"
	"github.com/kickerhub/kickerstats/internal/pubsub"
)

// Service owns the event log: it validates and persists match events,
// drives the aggregation engine with the right multiplier, and triggers the
// streak maintainer after commit.
type Service struct {
	store     docstore.Store
	engine    Aggregator
	publisher pubsub.PubSubClient
	metrics   metrics.Metrics
	now       func() time.Time
	newID     func() string
}

// AddMatchInput is a proposed match outcome.
type AddMatchInput struct {
	HomeTeamIDs []string     `json:"homeTeamIds"`
	AwayTeamIDs []string     `json:"awayTeamIds"`
	Score       kicker.Score `json:"score"`
	// MatchDate is an optional RFC 3339 timestamp; empty means now.
	MatchDate string `json:"matchDate,omitempty"`
}

// AddMatchResult is the committed event plus validation advisories.
type AddMatchResult struct {
	Event *kicker.MatchEvent `json:"event"`
	// Suspicious flags an accepted score where neither side reached 10.
	Suspicious bool `json:"suspicious,omitempty"`
}

// LeaderboardEntry is one row of the lifetime leaderboard read.
type LeaderboardEntry struct {
	PlayerID          string  `json:"player_id"`
	TotalMatches      int     `json:"total_matches"`
	TotalWins         int     `json:"total_wins"`
	TotalLosses       int     `json:"total_losses"`
	TotalGoalsFor     int     `json:"total_goals_for"`
	TotalGoalsAgainst int     `json:"total_goals_against"`
	WinStreak         int     `json:"win_streak"`
	HighestWinStreak  int     `json:"highest_win_streak"`
	WinPercentage     float64 `json:"win_percentage"`
}
