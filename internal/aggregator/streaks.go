package aggregator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/stats"
)

// PromoteMaxima raises highestWinStreak/highestLoseStreak to the current
// streak values for the given players. It runs outside the aggregation
// transaction: the maxima depend on the post-commit streaks, and the store
// forbids a read after the write phase has started. The pass is a monotonic
// ratchet, so it is safe to skip, delay or repeat; until it runs, a reader
// can observe a maximum that lags the current streak.
func (e *Engine) PromoteMaxima(ctx context.Context, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}

	keys := make([]docstore.Key, 0, len(playerIDs))
	for _, pid := range playerIDs {
		keys = append(keys, stats.LifetimeKey(pid))
	}
	docs, err := e.store.MultiGet(ctx, keys)
	if err != nil {
		return fmt.Errorf("promote maxima: %w", err)
	}

	var ops []docstore.WriteOp
	for _, pid := range playerIDs {
		doc, ok := docs[stats.LifetimeKey(pid)]
		if !ok {
			log.Debug("No lifetime document for player, skipping maxima", "playerID", pid)
			continue
		}
		lt := stats.LifetimeFromDocument(pid, doc)

		fields := map[string]docstore.FieldOp{}
		if lt.WinStreak > lt.HighestWinStreak {
			fields[stats.FieldHighestWinStreak] = docstore.Max(int64(lt.WinStreak))
		}
		if lt.LoseStreak > lt.HighestLoseStreak {
			fields[stats.FieldHighestLoseStreak] = docstore.Max(int64(lt.LoseStreak))
		}
		if len(fields) > 0 {
			ops = append(ops, docstore.Merge(stats.LifetimeKey(pid), fields))
		}
	}
	if len(ops) == 0 {
		return nil
	}

	if err := e.store.BatchWrite(ctx, ops); err != nil {
		return fmt.Errorf("promote maxima: %w", err)
	}
	e.metrics.AddStreakPromotions(len(ops))
	log.Debug("Promoted streak maxima", "players", len(ops))
	return nil
}
