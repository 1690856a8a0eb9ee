package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/stats"
)

// Apply folds one event into every participant's aggregates with the given
// multiplier (+1 apply, -1 reverse). Extra write ops are staged into the same
// transaction, which is how the ledger keeps the event record and its effects
// atomic. Either all participant documents for the event are updated, or none
// are; on a store conflict the whole operation retries with fresh reads.
func (e *Engine) Apply(ctx context.Context, event *kicker.MatchEvent, multiplier int, extra ...docstore.WriteOp) error {
	start := e.now()
	participants := event.Participants()
	periods := stats.ResolvePeriods(event.MatchDate)

	readKeys := make([]docstore.Key, 0, len(participants)*3)
	for _, pid := range participants {
		readKeys = append(readKeys,
			stats.BucketKey(pid, stats.PeriodDaily, periods.Daily),
			stats.BucketKey(pid, stats.PeriodWeekly, periods.Weekly),
		)
	}
	if multiplier < 0 {
		// Reversal clamps the current streaks against their stored values,
		// so those documents join the read set.
		for _, pid := range participants {
			readKeys = append(readKeys, stats.LifetimeKey(pid))
		}
	}

	var err error
	for attempt := 1; attempt <= e.opts.RetryBudget; attempt++ {
		err = e.store.Transact(ctx, func(tx docstore.Tx) error {
			// Read phase: one batched read of every needed document. On
			// apply the lifetime documents are write-merged blind, their
			// fields are pure increments.
			docs, readErr := tx.MultiGet(readKeys)
			if readErr != nil {
				return readErr
			}

			now := stats.FormatTime(e.now())
			for _, pid := range participants {
				inc := stats.ComputeIncrements(event, pid, multiplier, e.opts.CountDraws)
				tx.Write(lifetimeMerge(pid, event, inc, multiplier, now, docs))
				e.writeBucket(tx, docs, pid, stats.PeriodDaily, periods.Daily, inc.Bucket, multiplier, now)
				e.writeBucket(tx, docs, pid, stats.PeriodWeekly, periods.Weekly, inc.Bucket, multiplier, now)
			}
			for _, op := range extra {
				tx.Write(op)
			}
			return nil
		})
		if !errors.Is(err, docstore.ErrConflict) {
			break
		}
		e.metrics.IncTxRetries()
		log.Warn("Aggregation transaction conflict, retrying", "eventID", event.ID, "attempt", attempt)
	}

	e.metrics.ObserveApplyDuration(time.Since(start).Seconds())
	switch {
	case errors.Is(err, docstore.ErrConflict):
		e.metrics.IncTxFailures()
		return fmt.Errorf("%w: event %s after %d attempts", ErrRetriesExhausted, event.ID, e.opts.RetryBudget)
	case err != nil:
		return fmt.Errorf("apply event %s: %w", event.ID, err)
	}

	if multiplier >= 0 {
		e.metrics.IncEventsApplied()
	} else {
		e.metrics.IncEventsReversed()
	}
	return nil
}

// writeBucket stages the write for one (player, period) document. A bucket
// absent from the read set is freshly initialized on apply; on reverse the
// participant's bucket is skipped instead of materializing negative counts.
func (e *Engine) writeBucket(tx docstore.Tx, buckets map[docstore.Key]docstore.Document, playerID, periodType, periodID string, delta stats.BucketDelta, multiplier int, now string) {
	key := stats.BucketKey(playerID, periodType, periodID)
	if _, exists := buckets[key]; !exists {
		if multiplier < 0 {
			log.Warn("Bucket missing while reversing an event, skipping participant bucket",
				"playerID", playerID, "periodType", periodType, "periodID", periodID)
			return
		}
		tx.Write(docstore.Put(key, newBucketDocument(playerID, periodType, periodID, delta, now)))
		return
	}
	tx.Write(docstore.Merge(key, map[string]docstore.FieldOp{
		stats.FieldMatchesPlayed: docstore.Inc(int64(delta.MatchesPlayed)),
		stats.FieldWins:          docstore.Inc(int64(delta.Wins)),
		stats.FieldLosses:        docstore.Inc(int64(delta.Losses)),
		stats.FieldGoalsFor:      docstore.Inc(int64(delta.GoalsFor)),
		stats.FieldGoalsAgainst:  docstore.Inc(int64(delta.GoalsAgainst)),
		stats.FieldHumiliations:  docstore.Inc(int64(delta.Humiliations)),
		stats.FieldSuckerpunches: docstore.Inc(int64(delta.Suckerpunches)),
		stats.FieldLastUpdatedAt: docstore.Set(now),
	}))
}

func newBucketDocument(playerID, periodType, periodID string, delta stats.BucketDelta, now string) docstore.Document {
	return docstore.Document{
		stats.FieldPlayerID:        playerID,
		stats.FieldPeriodType:      periodType,
		stats.FieldPeriodID:        periodID,
		stats.FieldMatchesPlayed:   int64(delta.MatchesPlayed),
		stats.FieldWins:            int64(delta.Wins),
		stats.FieldLosses:          int64(delta.Losses),
		stats.FieldGoalsFor:        int64(delta.GoalsFor),
		stats.FieldGoalsAgainst:    int64(delta.GoalsAgainst),
		stats.FieldHumiliations:    int64(delta.Humiliations),
		stats.FieldSuckerpunches:   int64(delta.Suckerpunches),
		stats.FieldFirstActivityAt: now,
		stats.FieldLastUpdatedAt:   now,
	}
}

// lifetimeMerge builds the create-or-merge write for one player's lifetime
// document. Streak resets are literal sets and only apply on the forward
// direction; on reverse the streak counters are clamped at zero against the
// stored document so an already-reset streak cannot go negative.
func lifetimeMerge(playerID string, event *kicker.MatchEvent, inc stats.Increment, multiplier int, now string, docs map[docstore.Key]docstore.Document) docstore.WriteOp {
	fields := map[string]docstore.FieldOp{
		stats.FieldPlayerID:               docstore.SetOnInsert(playerID),
		stats.FieldTotalMatches:           docstore.Inc(int64(inc.Lifetime.Matches)),
		stats.FieldTotalWins:              docstore.Inc(int64(inc.Lifetime.Wins)),
		stats.FieldTotalLosses:            docstore.Inc(int64(inc.Lifetime.Losses)),
		stats.FieldTotalGoalsFor:          docstore.Inc(int64(inc.Lifetime.GoalsFor)),
		stats.FieldTotalGoalsAgainst:      docstore.Inc(int64(inc.Lifetime.GoalsAgainst)),
		stats.FieldTotalFlawlessVictories: docstore.Inc(int64(inc.Lifetime.FlawlessVictories)),
		stats.FieldTotalHumiliations:      docstore.Inc(int64(inc.Lifetime.Humiliations)),
		stats.FieldTotalSuckerpunches:     docstore.Inc(int64(inc.Lifetime.Suckerpunches)),
		stats.FieldTotalKnockouts:         docstore.Inc(int64(inc.Lifetime.Knockouts)),
		stats.FieldUpdatedAt:              docstore.Set(now),
	}
	if multiplier > 0 {
		fields[stats.FieldLastMatchAt] = docstore.Set(stats.FormatTime(event.MatchDate))
		if inc.ResetWinStreak {
			fields[stats.FieldWinStreak] = docstore.Set(int64(0))
		} else {
			fields[stats.FieldWinStreak] = docstore.Inc(int64(inc.Lifetime.WinStreak))
		}
		if inc.ResetLoseStreak {
			fields[stats.FieldLoseStreak] = docstore.Set(int64(0))
		} else {
			fields[stats.FieldLoseStreak] = docstore.Inc(int64(inc.Lifetime.LoseStreak))
		}
	} else {
		// Reversal can only undo the counter part of the streak; the reset
		// the event performed is path-dependent and stays. A later event may
		// already have reset the streak, so the decrement clamps at zero.
		current := stats.LifetimeFromDocument(playerID, docs[stats.LifetimeKey(playerID)])
		fields[stats.FieldWinStreak] = docstore.Set(clampStreak(current.WinStreak + inc.Lifetime.WinStreak))
		fields[stats.FieldLoseStreak] = docstore.Set(clampStreak(current.LoseStreak + inc.Lifetime.LoseStreak))
	}
	return docstore.Merge(stats.LifetimeKey(playerID), fields)
}

func clampStreak(n int) int64 {
	if n < 0 {
		return 0
	}
	return int64(n)
}
