package kicker_test

import (
	"testing"
	"time"

	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTeams(t *testing.T) {
	okScore := kicker.Score{Home: 10, Away: 4}

	t.Run("accepts singles and doubles", func(t *testing.T) {
		_, err := kicker.Validate([]string{"p1"}, []string{"p2"}, okScore)
		assert.NoError(t, err)
		_, err = kicker.Validate([]string{"p1", "p2"}, []string{"p3", "p4"}, okScore)
		assert.NoError(t, err)
	})

	t.Run("rejects empty teams", func(t *testing.T) {
		_, err := kicker.Validate(nil, []string{"p2"}, okScore)
		assertRule(t, err, kicker.RuleTeamSize)
	})

	t.Run("rejects unequal team sizes", func(t *testing.T) {
		_, err := kicker.Validate([]string{"p1", "p2"}, []string{"p3"}, okScore)
		assertRule(t, err, kicker.RuleTeamSize)
	})

	t.Run("rejects oversized teams", func(t *testing.T) {
		_, err := kicker.Validate([]string{"p1", "p2", "p3"}, []string{"p4", "p5", "p6"}, okScore)
		assertRule(t, err, kicker.RuleTeamSize)
	})

	t.Run("rejects a player on both teams", func(t *testing.T) {
		_, err := kicker.Validate([]string{"p1", "p2"}, []string{"p2", "p3"}, okScore)
		assertRule(t, err, kicker.RuleDuplicatePlayer)
	})

	t.Run("rejects a player listed twice on one team", func(t *testing.T) {
		_, err := kicker.Validate([]string{"p1", "p1"}, []string{"p2", "p3"}, okScore)
		assertRule(t, err, kicker.RuleDuplicatePlayer)

		_, err = kicker.Validate([]string{"p1", "p2"}, []string{"p3", "p3"}, okScore)
		assertRule(t, err, kicker.RuleDuplicatePlayer)
	})
}

func TestValidateScores(t *testing.T) {
	home := []string{"p1"}
	away := []string{"p2"}

	t.Run("rejects out-of-range scores", func(t *testing.T) {
		_, err := kicker.Validate(home, away, kicker.Score{Home: -1, Away: 3})
		assertRule(t, err, kicker.RuleScoreRange)
		_, err = kicker.Validate(home, away, kicker.Score{Home: 12, Away: 3})
		assertRule(t, err, kicker.RuleScoreRange)
	})

	t.Run("rejects both sides at ten or above", func(t *testing.T) {
		for _, score := range []kicker.Score{
			{Home: 10, Away: 10},
			{Home: 11, Away: 10},
			{Home: 10, Away: 11},
			{Home: 11, Away: 11},
		} {
			_, err := kicker.Validate(home, away, score)
			assertRule(t, err, kicker.RuleScoreLegality)
		}
	})

	t.Run("accepts every legal finish", func(t *testing.T) {
		for loser := 0; loser <= 9; loser++ {
			for _, winner := range []int{10, 11} {
				suspicious, err := kicker.Validate(home, away, kicker.Score{Home: winner, Away: loser})
				require.NoError(t, err, "score %d-%d", winner, loser)
				assert.False(t, suspicious, "score %d-%d", winner, loser)
			}
		}
	})

	t.Run("flags unfinished scores as suspicious", func(t *testing.T) {
		suspicious, err := kicker.Validate(home, away, kicker.Score{Home: 7, Away: 3})
		require.NoError(t, err)
		assert.True(t, suspicious)
	})

	t.Run("accepts the zero-zero placeholder quietly", func(t *testing.T) {
		suspicious, err := kicker.Validate(home, away, kicker.Score{})
		require.NoError(t, err)
		assert.False(t, suspicious)
	})
}

func TestParseMatchDate(t *testing.T) {
	frozen := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return frozen }

	t.Run("empty date resolves to now", func(t *testing.T) {
		parsed, err := kicker.ParseMatchDate("", now)
		require.NoError(t, err)
		assert.Equal(t, frozen, parsed)
	})

	t.Run("parses and normalizes to UTC", func(t *testing.T) {
		parsed, err := kicker.ParseMatchDate("2025-06-14T22:30:00+02:00", now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 14, 20, 30, 0, 0, time.UTC), parsed)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := kicker.ParseMatchDate("yesterday", now)
		assertRule(t, err, kicker.RuleMatchDate)
	})
}

func TestScoreOutcome(t *testing.T) {
	assert.Equal(t, kicker.OutcomeHomeWon, kicker.Score{Home: 10, Away: 2}.Outcome())
	assert.Equal(t, kicker.OutcomeAwayWon, kicker.Score{Home: 2, Away: 10}.Outcome())
	assert.Equal(t, kicker.OutcomeDraw, kicker.Score{Home: 4, Away: 4}.Outcome())
}

func TestEventDocumentRoundTrip(t *testing.T) {
	event := &kicker.MatchEvent{
		ID:          "evt-1",
		MatchDate:   time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
		HomeTeamIDs: []string{"p1", "p2"},
		AwayTeamIDs: []string{"p3", "p4"},
		FinalScore:  kicker.Score{Home: 11, Away: 6},
		Outcome:     kicker.OutcomeHomeWon,
		CreatedAt:   time.Date(2025, 3, 1, 18, 5, 0, 0, time.UTC),
	}

	decoded, err := kicker.EventFromDocument(event.ToDocument())
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestTeamOf(t *testing.T) {
	event := &kicker.MatchEvent{
		HomeTeamIDs: []string{"p1", "p2"},
		AwayTeamIDs: []string{"p3"},
	}
	assert.Equal(t, kicker.TeamHome, event.TeamOf("p2"))
	assert.Equal(t, kicker.TeamAway, event.TeamOf("p3"))
	assert.Equal(t, -1, event.TeamOf("stranger"))
}

func assertRule(t *testing.T, err error, rule string) {
	t.Helper()
	var verr *kicker.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, rule, verr.Rule)
}
