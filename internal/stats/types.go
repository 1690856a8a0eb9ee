package stats

import "time"

// Collections of the persisted aggregate documents.
const (
	CollectionMatches     = "matches"
	CollectionPlayerStats = "playerStats"
	CollectionBucketStats = "bucketStats"
)

// Period bucket types.
const (
	PeriodDaily  = "daily"
	PeriodWeekly = "weekly"
)

// Lifetime document field names. These are the persisted layout that
// downstream leaderboard queries depend on.
const (
	FieldPlayerID               = "playerId"
	FieldTotalMatches           = "totalMatches"
	FieldTotalWins              = "totalWins"
	FieldTotalLosses            = "totalLosses"
	FieldTotalGoalsFor          = "totalGoalsFor"
	FieldTotalGoalsAgainst      = "totalGoalsAgainst"
	FieldTotalFlawlessVictories = "totalFlawlessVictories"
	FieldTotalHumiliations      = "totalHumiliations"
	FieldTotalSuckerpunches     = "totalSuckerpunches"
	FieldTotalKnockouts         = "totalKnockouts"
	FieldWinStreak              = "winStreak"
	FieldLoseStreak             = "loseStreak"
	FieldHighestWinStreak       = "highestWinStreak"
	FieldHighestLoseStreak      = "highestLoseStreak"
	FieldLastMatchAt            = "lastMatchAt"
	FieldUpdatedAt              = "updatedAt"
)

// Bucket document field names.
const (
	FieldPeriodType      = "periodType"
	FieldPeriodID        = "periodId"
	FieldMatchesPlayed   = "matchesPlayed"
	FieldWins            = "wins"
	FieldLosses          = "losses"
	FieldGoalsFor        = "goalsFor"
	FieldGoalsAgainst    = "goalsAgainst"
	FieldHumiliations    = "humiliations"
	FieldSuckerpunches   = "suckerpunches"
	FieldFirstActivityAt = "firstActivityAt"
	FieldLastUpdatedAt   = "lastUpdatedAt"
)

// Lifetime holds a player's cumulative all-time counters.
type Lifetime struct {
	PlayerID               string `json:"player_id"`
	TotalMatches           int    `json:"total_matches"`
	TotalWins              int    `json:"total_wins"`
	TotalLosses            int    `json:"total_losses"`
	TotalGoalsFor          int    `json:"total_goals_for"`
	TotalGoalsAgainst      int    `json:"total_goals_against"`
	TotalFlawlessVictories int    `json:"total_flawless_victories"`
	TotalHumiliations      int    `json:"total_humiliations"`
	TotalSuckerpunches     int    `json:"total_suckerpunches"`
	TotalKnockouts         int    `json:"total_knockouts"`
	WinStreak              int    `json:"win_streak"`
	LoseStreak             int    `json:"lose_streak"`
	HighestWinStreak       int    `json:"highest_win_streak"`
	HighestLoseStreak      int    `json:"highest_lose_streak"`
	LastMatchAt            string `json:"last_match_at,omitempty"`
}

// Bucket holds a player's counters for one calendar day or ISO week.
type Bucket struct {
	PlayerID        string `json:"player_id"`
	PeriodType      string `json:"period_type"`
	PeriodID        string `json:"period_id"`
	MatchesPlayed   int    `json:"matches_played"`
	Wins            int    `json:"wins"`
	Losses          int    `json:"losses"`
	GoalsFor        int    `json:"goals_for"`
	GoalsAgainst    int    `json:"goals_against"`
	Humiliations    int    `json:"humiliations"`
	Suckerpunches   int    `json:"suckerpunches"`
	FirstActivityAt string `json:"first_activity_at,omitempty"`
	LastUpdatedAt   string `json:"last_updated_at,omitempty"`
}

// LifetimeFromDocument decodes a lifetime document. Unseen fields default to
// zero, matching the create-or-merge semantics of the write path.
func LifetimeFromDocument(playerID string, doc map[string]any) Lifetime {
	lt := Lifetime{PlayerID: playerID}
	if doc == nil {
		return lt
	}
	lt.TotalMatches = docInt(doc, FieldTotalMatches)
	lt.TotalWins = docInt(doc, FieldTotalWins)
	lt.TotalLosses = docInt(doc, FieldTotalLosses)
	lt.TotalGoalsFor = docInt(doc, FieldTotalGoalsFor)
	lt.TotalGoalsAgainst = docInt(doc, FieldTotalGoalsAgainst)
	lt.TotalFlawlessVictories = docInt(doc, FieldTotalFlawlessVictories)
	lt.TotalHumiliations = docInt(doc, FieldTotalHumiliations)
	lt.TotalSuckerpunches = docInt(doc, FieldTotalSuckerpunches)
	lt.TotalKnockouts = docInt(doc, FieldTotalKnockouts)
	lt.WinStreak = docInt(doc, FieldWinStreak)
	lt.LoseStreak = docInt(doc, FieldLoseStreak)
	lt.HighestWinStreak = docInt(doc, FieldHighestWinStreak)
	lt.HighestLoseStreak = docInt(doc, FieldHighestLoseStreak)
	if s, ok := doc[FieldLastMatchAt].(string); ok {
		lt.LastMatchAt = s
	}
	return lt
}

// BucketFromDocument decodes a bucket document.
func BucketFromDocument(doc map[string]any) Bucket {
	b := Bucket{}
	if doc == nil {
		return b
	}
	if s, ok := doc[FieldPlayerID].(string); ok {
		b.PlayerID = s
	}
	if s, ok := doc[FieldPeriodType].(string); ok {
		b.PeriodType = s
	}
	if s, ok := doc[FieldPeriodID].(string); ok {
		b.PeriodID = s
	}
	b.MatchesPlayed = docInt(doc, FieldMatchesPlayed)
	b.Wins = docInt(doc, FieldWins)
	b.Losses = docInt(doc, FieldLosses)
	b.GoalsFor = docInt(doc, FieldGoalsFor)
	b.GoalsAgainst = docInt(doc, FieldGoalsAgainst)
	b.Humiliations = docInt(doc, FieldHumiliations)
	b.Suckerpunches = docInt(doc, FieldSuckerpunches)
	if s, ok := doc[FieldFirstActivityAt].(string); ok {
		b.FirstActivityAt = s
	}
	if s, ok := doc[FieldLastUpdatedAt].(string); ok {
		b.LastUpdatedAt = s
	}
	return b
}

func docInt(doc map[string]any, field string) int {
	switch n := doc[field].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int32:
		return int(n)
	default:
		return 0
	}
}

// FormatTime renders timestamps the way every aggregate document stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
