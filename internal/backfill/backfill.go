package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/stats"
)

// bucketState accumulates one (player, period) document across the range.
type bucketState struct {
	playerID   string
	periodType string
	periodID   string
	delta      stats.BucketDelta
	firstAt    time.Time
	lastAt     time.Time
}

// Run replays the event log between start and end (inclusive; zero values
// mean unbounded) and overwrites the touched bucket documents with the
// recomputed totals. When both bounds are zero the whole history is replayed
// and the lifetime documents, including streaks and their maxima, are rebuilt
// as well. A partial range cannot know a player's all-time totals, so ranged
// runs leave lifetime documents alone.
func (j *Job) Run(ctx context.Context, start, end time.Time) (Result, error) {
	j.metrics.IncBackfillRuns()
	fullHistory := start.IsZero() && end.IsZero()
	log.Info("Starting backfill", "start", start, "end", end, "fullHistory", fullHistory)

	if j.opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.opts.TimeBudget)
		defer cancel()
	}

	result := Result{}
	lifetimes := make(map[string]*stats.Lifetime)
	buckets := make(map[docstore.Key]*bucketState)

	// Phase 1: page through the log in match-date order, accumulating every
	// player's increments in memory instead of writing per event.
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := j.store.Query(ctx, j.eventQuery(start, end, cursor))
		if err != nil {
			return result, fmt.Errorf("backfill query: %w", err)
		}
		for i, doc := range page.Docs {
			event, err := kicker.EventFromDocument(doc)
			if err != nil {
				log.Error("Skipping undecodable event during backfill", "error", err, "id", page.Keys[i].ID)
				continue
			}
			j.accumulate(event, lifetimes, buckets)
			result.MatchesProcessed++
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	log.Info("Backfill accumulation complete", "matches", result.MatchesProcessed,
		"players", len(lifetimes), "buckets", len(buckets))

	// Phase 2: flush the recomputed documents as overwrites in capped,
	// paced batches.
	ops := make([]docstore.WriteOp, 0, len(buckets)+len(lifetimes))
	for key, state := range buckets {
		ops = append(ops, docstore.Put(key, bucketDocument(state)))
	}
	if fullHistory {
		for playerID, lt := range lifetimes {
			ops = append(ops, docstore.Put(stats.LifetimeKey(playerID), lifetimeDocument(lt)))
		}
	}
	// Deterministic flush order keeps repeated runs byte-identical.
	sort.Slice(ops, func(a, b int) bool {
		if ops[a].Key.Collection != ops[b].Key.Collection {
			return ops[a].Key.Collection < ops[b].Key.Collection
		}
		return ops[a].Key.ID < ops[b].Key.ID
	})

	for len(ops) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch := ops
		if len(batch) > j.opts.MaxBatchOps {
			batch = batch[:j.opts.MaxBatchOps]
		}
		if err := j.store.BatchWrite(ctx, batch); err != nil {
			return result, fmt.Errorf("backfill flush: %w", err)
		}
		result.DocumentsWritten += len(batch)
		j.metrics.AddBackfillDocsWritten(len(batch))
		ops = ops[len(batch):]
		if len(ops) > 0 {
			j.sleep(j.opts.Pause)
		}
	}

	log.Info("Backfill finished", "matches", result.MatchesProcessed, "documents", result.DocumentsWritten)
	return result, nil
}

func (j *Job) eventQuery(start, end time.Time, cursor string) docstore.Query {
	q := docstore.Query{
		Collection: stats.CollectionMatches,
		OrderBy:    "matchDate",
		Limit:      j.opts.PageSize,
		Cursor:     cursor,
	}
	if !start.IsZero() {
		q.Filters = append(q.Filters, docstore.Filter{
			Field: "matchDate", Op: docstore.OpGreaterEqual, Value: stats.FormatTime(start),
		})
	}
	if !end.IsZero() {
		q.Filters = append(q.Filters, docstore.Filter{
			Field: "matchDate", Op: docstore.OpLessEqual, Value: stats.FormatTime(end),
		})
	}
	return q
}

func (j *Job) accumulate(event *kicker.MatchEvent, lifetimes map[string]*stats.Lifetime, buckets map[docstore.Key]*bucketState) {
	periods := stats.ResolvePeriods(event.MatchDate)
	for _, pid := range event.Participants() {
		inc := stats.ComputeIncrements(event, pid, +1, j.opts.CountDraws)

		lt, ok := lifetimes[pid]
		if !ok {
			lt = &stats.Lifetime{PlayerID: pid}
			lifetimes[pid] = lt
		}
		foldLifetime(lt, inc, event.MatchDate)

		for _, period := range []struct{ periodType, periodID string }{
			{stats.PeriodDaily, periods.Daily},
			{stats.PeriodWeekly, periods.Weekly},
		} {
			key := stats.BucketKey(pid, period.periodType, period.periodID)
			state, ok := buckets[key]
			if !ok {
				state = &bucketState{
					playerID:   pid,
					periodType: period.periodType,
					periodID:   period.periodID,
					firstAt:    event.MatchDate,
				}
				buckets[key] = state
			}
			state.delta = addBucketDeltas(state.delta, inc.Bucket)
			if event.MatchDate.After(state.lastAt) {
				state.lastAt = event.MatchDate
			}
			if event.MatchDate.Before(state.firstAt) {
				state.firstAt = event.MatchDate
			}
		}
	}
}

// foldLifetime replays one increment into a player's lifetime totals,
// recomputing the path-dependent streak fields the additive live path cannot
// rebuild.
func foldLifetime(lt *stats.Lifetime, inc stats.Increment, matchDate time.Time) {
	lt.TotalMatches += inc.Lifetime.Matches
	lt.TotalWins += inc.Lifetime.Wins
	lt.TotalLosses += inc.Lifetime.Losses
	lt.TotalGoalsFor += inc.Lifetime.GoalsFor
	lt.TotalGoalsAgainst += inc.Lifetime.GoalsAgainst
	lt.TotalFlawlessVictories += inc.Lifetime.FlawlessVictories
	lt.TotalHumiliations += inc.Lifetime.Humiliations
	lt.TotalSuckerpunches += inc.Lifetime.Suckerpunches
	lt.TotalKnockouts += inc.Lifetime.Knockouts

	switch {
	case inc.Lifetime.Wins > 0:
		lt.WinStreak++
		lt.LoseStreak = 0
		if lt.WinStreak > lt.HighestWinStreak {
			lt.HighestWinStreak = lt.WinStreak
		}
	case inc.Lifetime.Losses > 0:
		lt.LoseStreak++
		lt.WinStreak = 0
		if lt.LoseStreak > lt.HighestLoseStreak {
			lt.HighestLoseStreak = lt.LoseStreak
		}
	default:
		lt.WinStreak = 0
		lt.LoseStreak = 0
	}
	lt.LastMatchAt = stats.FormatTime(matchDate)
}

func addBucketDeltas(a, b stats.BucketDelta) stats.BucketDelta {
	return stats.BucketDelta{
		MatchesPlayed: a.MatchesPlayed + b.MatchesPlayed,
		Wins:          a.Wins + b.Wins,
		Losses:        a.Losses + b.Losses,
		GoalsFor:      a.GoalsFor + b.GoalsFor,
		GoalsAgainst:  a.GoalsAgainst + b.GoalsAgainst,
		Humiliations:  a.Humiliations + b.Humiliations,
		Suckerpunches: a.Suckerpunches + b.Suckerpunches,
	}
}

func bucketDocument(state *bucketState) docstore.Document {
	return docstore.Document{
		stats.FieldPlayerID:        state.playerID,
		stats.FieldPeriodType:      state.periodType,
		stats.FieldPeriodID:        state.periodID,
		stats.FieldMatchesPlayed:   int64(state.delta.MatchesPlayed),
		stats.FieldWins:            int64(state.delta.Wins),
		stats.FieldLosses:          int64(state.delta.Losses),
		stats.FieldGoalsFor:        int64(state.delta.GoalsFor),
		stats.FieldGoalsAgainst:    int64(state.delta.GoalsAgainst),
		stats.FieldHumiliations:    int64(state.delta.Humiliations),
		stats.FieldSuckerpunches:   int64(state.delta.Suckerpunches),
		stats.FieldFirstActivityAt: stats.FormatTime(state.firstAt),
		stats.FieldLastUpdatedAt:   stats.FormatTime(state.lastAt),
	}
}

func lifetimeDocument(lt *stats.Lifetime) docstore.Document {
	return docstore.Document{
		stats.FieldPlayerID:               lt.PlayerID,
		stats.FieldTotalMatches:           int64(lt.TotalMatches),
		stats.FieldTotalWins:              int64(lt.TotalWins),
		stats.FieldTotalLosses:            int64(lt.TotalLosses),
		stats.FieldTotalGoalsFor:          int64(lt.TotalGoalsFor),
		stats.FieldTotalGoalsAgainst:      int64(lt.TotalGoalsAgainst),
		stats.FieldTotalFlawlessVictories: int64(lt.TotalFlawlessVictories),
		stats.FieldTotalHumiliations:      int64(lt.TotalHumiliations),
		stats.FieldTotalSuckerpunches:     int64(lt.TotalSuckerpunches),
		stats.FieldTotalKnockouts:         int64(lt.TotalKnockouts),
		stats.FieldWinStreak:              int64(lt.WinStreak),
		stats.FieldLoseStreak:             int64(lt.LoseStreak),
		stats.FieldHighestWinStreak:       int64(lt.HighestWinStreak),
		stats.FieldHighestLoseStreak:      int64(lt.HighestLoseStreak),
		stats.FieldLastMatchAt:            lt.LastMatchAt,
		stats.FieldUpdatedAt:              lt.LastMatchAt,
	}
}
