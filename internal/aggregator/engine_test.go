package aggregator_test

import (
	"context"
	"testing"
	"time"

	"github.com/kickerhub/kickerstats/internal/aggregator"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/metrics"
	"github.com/kickerhub/kickerstats/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var matchDate = time.Date(2025, 6, 18, 14, 0, 0, 0, time.UTC)

func doublesEvent(home, away int) *kicker.MatchEvent {
	score := kicker.Score{Home: home, Away: away}
	return &kicker.MatchEvent{
		ID:          "evt-1",
		MatchDate:   matchDate,
		HomeTeamIDs: []string{"h1", "h2"},
		AwayTeamIDs: []string{"a1", "a2"},
		FinalScore:  score,
		Outcome:     score.Outcome(),
		CreatedAt:   matchDate,
	}
}

func newEngine(t *testing.T, store docstore.Store) (*aggregator.Engine, *metrics.Mock) {
	t.Helper()
	mock := metrics.NewMock()
	return aggregator.New(store, mock, aggregator.Options{CountDraws: true}), mock
}

func lifetimeOf(t *testing.T, store docstore.Store, playerID string) stats.Lifetime {
	t.Helper()
	doc, err := store.Get(context.Background(), stats.LifetimeKey(playerID))
	require.NoError(t, err)
	return stats.LifetimeFromDocument(playerID, doc)
}

func bucketOf(t *testing.T, store docstore.Store, playerID, periodType, periodID string) stats.Bucket {
	t.Helper()
	doc, err := store.Get(context.Background(), stats.BucketKey(playerID, periodType, periodID))
	require.NoError(t, err)
	return stats.BucketFromDocument(doc)
}

func TestApplyUpdatesAllParticipants(t *testing.T) {
	store := docstore.NewMemory()
	engine, mock := newEngine(t, store)

	err := engine.Apply(context.Background(), doublesEvent(10, 3), +1)
	require.NoError(t, err)
	assert.Equal(t, 1, mock.EventsApplied())

	periods := stats.ResolvePeriods(matchDate)

	for _, pid := range []string{"h1", "h2"} {
		lt := lifetimeOf(t, store, pid)
		assert.Equal(t, 1, lt.TotalMatches, pid)
		assert.Equal(t, 1, lt.TotalWins, pid)
		assert.Equal(t, 0, lt.TotalLosses, pid)
		assert.Equal(t, 10, lt.TotalGoalsFor, pid)
		assert.Equal(t, 3, lt.TotalGoalsAgainst, pid)
		assert.Equal(t, 1, lt.WinStreak, pid)
		assert.Equal(t, 0, lt.LoseStreak, pid)
		assert.Equal(t, stats.FormatTime(matchDate), lt.LastMatchAt, pid)

		daily := bucketOf(t, store, pid, stats.PeriodDaily, periods.Daily)
		assert.Equal(t, 1, daily.Wins, pid)
		assert.Equal(t, 1, daily.MatchesPlayed, pid)
		weekly := bucketOf(t, store, pid, stats.PeriodWeekly, periods.Weekly)
		assert.Equal(t, 1, weekly.Wins, pid)
	}
	for _, pid := range []string{"a1", "a2"} {
		lt := lifetimeOf(t, store, pid)
		assert.Equal(t, 1, lt.TotalLosses, pid)
		assert.Equal(t, 0, lt.TotalWins, pid)
		assert.Equal(t, 3, lt.TotalGoalsFor, pid)
		assert.Equal(t, 1, lt.LoseStreak, pid)

		daily := bucketOf(t, store, pid, stats.PeriodDaily, periods.Daily)
		assert.Equal(t, 1, daily.Losses, pid)
	}
}

func TestApplyThenReverseRestoresCounters(t *testing.T) {
	store := docstore.NewMemory()
	engine, mock := newEngine(t, store)
	ctx := context.Background()
	event := doublesEvent(11, 0)

	require.NoError(t, engine.Apply(ctx, event, +1))
	require.NoError(t, engine.Apply(ctx, event, -1))
	assert.Equal(t, 1, mock.EventsApplied())
	assert.Equal(t, 1, mock.EventsReversed())

	periods := stats.ResolvePeriods(matchDate)
	for _, pid := range []string{"h1", "h2", "a1", "a2"} {
		lt := lifetimeOf(t, store, pid)
		assert.Zero(t, lt.TotalMatches, pid)
		assert.Zero(t, lt.TotalWins, pid)
		assert.Zero(t, lt.TotalLosses, pid)
		assert.Zero(t, lt.TotalGoalsFor, pid)
		assert.Zero(t, lt.TotalGoalsAgainst, pid)
		assert.Zero(t, lt.TotalFlawlessVictories, pid)
		assert.Zero(t, lt.TotalHumiliations, pid)
		assert.Zero(t, lt.TotalSuckerpunches, pid)
		assert.Zero(t, lt.TotalKnockouts, pid)
		assert.Zero(t, lt.WinStreak, pid)
		assert.Zero(t, lt.LoseStreak, pid)

		daily := bucketOf(t, store, pid, stats.PeriodDaily, periods.Daily)
		assert.Zero(t, daily.MatchesPlayed, pid)
		assert.Zero(t, daily.Wins, pid)
		assert.Zero(t, daily.Losses, pid)
		assert.Zero(t, daily.Humiliations, pid)
		assert.Zero(t, daily.Suckerpunches, pid)
	}
}

func TestReverseWithMissingBucketSkipsParticipant(t *testing.T) {
	store := docstore.NewMemory()
	engine, _ := newEngine(t, store)
	ctx := context.Background()

	// Reversing an event that was never applied must not materialize
	// negative buckets.
	require.NoError(t, engine.Apply(ctx, doublesEvent(10, 3), -1))

	periods := stats.ResolvePeriods(matchDate)
	_, err := store.Get(ctx, stats.BucketKey("h1", stats.PeriodDaily, periods.Daily))
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestApplyExtraOpsAreAtomic(t *testing.T) {
	store := docstore.NewMemory()
	engine, _ := newEngine(t, store)
	ctx := context.Background()

	eventKey := stats.MatchKey("evt-1")
	event := doublesEvent(10, 3)
	require.NoError(t, engine.Apply(ctx, event, +1, docstore.Put(eventKey, event.ToDocument())))

	doc, err := store.Get(ctx, eventKey)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", doc["id"])
}

func TestApplyAccumulatesAcrossEvents(t *testing.T) {
	store := docstore.NewMemory()
	engine, _ := newEngine(t, store)
	ctx := context.Background()

	win := doublesEvent(10, 3)
	require.NoError(t, engine.Apply(ctx, win, +1))
	win2 := doublesEvent(11, 5)
	win2.ID = "evt-2"
	require.NoError(t, engine.Apply(ctx, win2, +1))

	lt := lifetimeOf(t, store, "h1")
	assert.Equal(t, 2, lt.TotalMatches)
	assert.Equal(t, 2, lt.TotalWins)
	assert.Equal(t, 2, lt.WinStreak, "consecutive wins extend the streak")
	assert.Equal(t, 21, lt.TotalGoalsFor)

	loss := doublesEvent(2, 10)
	loss.ID = "evt-3"
	require.NoError(t, engine.Apply(ctx, loss, +1))

	lt = lifetimeOf(t, store, "h1")
	assert.Equal(t, 0, lt.WinStreak, "a loss resets the win streak")
	assert.Equal(t, 1, lt.LoseStreak)
}

func TestReverseAfterLaterResetKeepsStreaksAtZero(t *testing.T) {
	store := docstore.NewMemory()
	engine, _ := newEngine(t, store)
	ctx := context.Background()

	win := doublesEvent(10, 3)
	require.NoError(t, engine.Apply(ctx, win, +1))
	loss := doublesEvent(2, 10)
	loss.ID = "evt-2"
	require.NoError(t, engine.Apply(ctx, loss, +1))

	// The loss already reset h1's win streak to zero, so reversing the
	// earlier win must not drive it negative.
	require.NoError(t, engine.Apply(ctx, win, -1))

	lt := lifetimeOf(t, store, "h1")
	assert.Equal(t, 0, lt.WinStreak)
	assert.Equal(t, 1, lt.LoseStreak, "the surviving loss keeps its streak")
	assert.Equal(t, 1, lt.TotalMatches)
	assert.Equal(t, 0, lt.TotalWins)

	lt = lifetimeOf(t, store, "a1")
	assert.Equal(t, 0, lt.LoseStreak, "reversing a1's only loss clamps at zero")
	assert.Equal(t, 1, lt.WinStreak, "the surviving win keeps its streak")
}

// conflictStore wraps a Store and fails the first n Transact calls with
// ErrConflict before delegating.
type conflictStore struct {
	docstore.Store
	remaining int
}

func (c *conflictStore) Transact(ctx context.Context, fn func(tx docstore.Tx) error) error {
	if c.remaining > 0 {
		c.remaining--
		return docstore.ErrConflict
	}
	return c.Store.Transact(ctx, fn)
}

func TestApplyRetriesOnConflict(t *testing.T) {
	inner := docstore.NewMemory()
	store := &conflictStore{Store: inner, remaining: 2}
	engine, mock := newEngine(t, store)

	err := engine.Apply(context.Background(), doublesEvent(10, 3), +1)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.TxRetries())
	assert.Equal(t, 0, mock.TxFailures())

	lt := lifetimeOf(t, inner, "h1")
	assert.Equal(t, 1, lt.TotalWins)
}

func TestApplyExhaustsRetryBudget(t *testing.T) {
	store := &conflictStore{Store: docstore.NewMemory(), remaining: 100}
	mock := metrics.NewMock()
	engine := aggregator.New(store, mock, aggregator.Options{RetryBudget: 3, CountDraws: true})

	err := engine.Apply(context.Background(), doublesEvent(10, 3), +1)
	assert.ErrorIs(t, err, aggregator.ErrRetriesExhausted)
	assert.Equal(t, 3, mock.TxRetries())
	assert.Equal(t, 1, mock.TxFailures())
	assert.Equal(t, 0, mock.EventsApplied())
}
