package stats

import (
	"github.com/kickerhub/kickerstats/internal/kicker"
)

// LifetimeDelta is the signed change to one player's lifetime document.
type LifetimeDelta struct {
	Matches           int
	Wins              int
	Losses            int
	GoalsFor          int
	GoalsAgainst      int
	FlawlessVictories int
	Humiliations      int
	Suckerpunches     int
	Knockouts         int
	WinStreak         int
	LoseStreak        int
}

// BucketDelta is the signed change to one player's period documents.
type BucketDelta struct {
	MatchesPlayed int
	Wins          int
	Losses        int
	GoalsFor      int
	GoalsAgainst  int
	Humiliations  int
	Suckerpunches int
}

// Increment is the unit of work passed from the calculator to the aggregation
// engine: one player's deltas derived from one event and a multiplier. It is
// never persisted.
type Increment struct {
	PlayerID string

	// HasHumiliation is set for both participants when the loser scored 0
	// against a decided match; HasSuckerPunch only for the winner of an
	// 11-point finish.
	HasHumiliation bool
	HasSuckerPunch bool

	// Streak resets are point-in-time sets, not counters. The engine applies
	// them only when the multiplier is positive: reversing a path-dependent
	// reset is impossible, which is why streaks sit outside the
	// reversibility law.
	ResetWinStreak  bool
	ResetLoseStreak bool

	Lifetime LifetimeDelta
	Bucket   BucketDelta
}

// ComputeIncrements derives one player's deltas from one event. Every counter
// scales linearly by the multiplier (+1 apply, -1 reverse), which is what
// makes deletion a true inverse of creation; identical inputs always yield
// identical deltas, so backfill replays stay deterministic. countDraws
// controls whether a drawn match counts toward bucket matchesPlayed.
func ComputeIncrements(event *kicker.MatchEvent, playerID string, multiplier int, countDraws bool) Increment {
	inc := Increment{PlayerID: playerID}

	team := event.TeamOf(playerID)
	if team < 0 {
		return inc
	}

	score := event.FinalScore
	goalsFor, goalsAgainst := score.Home, score.Away
	if team == kicker.TeamAway {
		goalsFor, goalsAgainst = score.Away, score.Home
	}

	decided := score.Winning() >= 10
	humiliation := decided && score.Losing() == 0
	suckerPunch := score.Winning() == kicker.MaxScore

	won := (team == kicker.TeamHome && event.Outcome == kicker.OutcomeHomeWon) ||
		(team == kicker.TeamAway && event.Outcome == kicker.OutcomeAwayWon)
	draw := event.Outcome == kicker.OutcomeDraw

	inc.HasHumiliation = humiliation
	inc.HasSuckerPunch = suckerPunch && won

	inc.Lifetime.Matches = 1
	inc.Lifetime.GoalsFor = goalsFor
	inc.Lifetime.GoalsAgainst = goalsAgainst
	inc.Bucket.GoalsFor = goalsFor
	inc.Bucket.GoalsAgainst = goalsAgainst

	switch {
	case won:
		inc.Lifetime.Wins = 1
		inc.Lifetime.WinStreak = 1
		inc.ResetLoseStreak = true
		inc.Bucket.Wins = 1
		inc.Bucket.MatchesPlayed = 1
		if humiliation {
			inc.Lifetime.FlawlessVictories = 1
		}
		if suckerPunch {
			inc.Lifetime.Suckerpunches = 1
			inc.Bucket.Suckerpunches = 1
		}
	case draw:
		// A true draw clears both streaks and records no win or loss.
		inc.ResetWinStreak = true
		inc.ResetLoseStreak = true
		if countDraws {
			inc.Bucket.MatchesPlayed = 1
		}
	default:
		inc.Lifetime.Losses = 1
		inc.Lifetime.LoseStreak = 1
		inc.ResetWinStreak = true
		inc.Bucket.Losses = 1
		inc.Bucket.MatchesPlayed = 1
		if humiliation {
			inc.Lifetime.Humiliations = 1
			inc.Bucket.Humiliations = 1
		}
		if suckerPunch {
			inc.Lifetime.Knockouts = 1
		}
	}

	if multiplier != 1 {
		inc.Lifetime = inc.Lifetime.scale(multiplier)
		inc.Bucket = inc.Bucket.scale(multiplier)
	}
	return inc
}

func (d LifetimeDelta) scale(m int) LifetimeDelta {
	return LifetimeDelta{
		Matches:           d.Matches * m,
		Wins:              d.Wins * m,
		Losses:            d.Losses * m,
		GoalsFor:          d.GoalsFor * m,
		GoalsAgainst:      d.GoalsAgainst * m,
		FlawlessVictories: d.FlawlessVictories * m,
		Humiliations:      d.Humiliations * m,
		Suckerpunches:     d.Suckerpunches * m,
		Knockouts:         d.Knockouts * m,
		WinStreak:         d.WinStreak * m,
		LoseStreak:        d.LoseStreak * m,
	}
}

func (d BucketDelta) scale(m int) BucketDelta {
	return BucketDelta{
		MatchesPlayed: d.MatchesPlayed * m,
		Wins:          d.Wins * m,
		Losses:        d.Losses * m,
		GoalsFor:      d.GoalsFor * m,
		GoalsAgainst:  d.GoalsAgainst * m,
		Humiliations:  d.Humiliations * m,
		Suckerpunches: d.Suckerpunches * m,
	}
}
