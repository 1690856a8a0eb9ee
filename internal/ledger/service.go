package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/metrics"
	"github.com/kickerhub/kickerstats/internal/pubsub"
	"github.com/kickerhub/kickerstats/internal/stats"
)

// New creates a new ledger Service.
func New(store docstore.Store, engine Aggregator, publisher pubsub.PubSubClient, metricsSvc metrics.Metrics) *Service {
	return &Service{
		store:     store,
		engine:    engine,
		publisher: publisher,
		metrics:   metricsSvc,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AddMatch validates a proposed outcome, persists it as an event and applies
// its increments, both in one transaction. The streak maintainer runs after
// the commit and never fails the call.
func (s *Service) AddMatch(ctx context.Context, in AddMatchInput) (*AddMatchResult, error) {
	suspicious, err := kicker.Validate(in.HomeTeamIDs, in.AwayTeamIDs, in.Score)
	if err != nil {
		return nil, err
	}
	matchDate, err := kicker.ParseMatchDate(in.MatchDate, s.now)
	if err != nil {
		return nil, err
	}
	if suspicious {
		s.metrics.IncSuspiciousScores()
		log.Warn("Accepting suspicious score", "home", in.Score.Home, "away", in.Score.Away)
	}

	event := &kicker.MatchEvent{
		ID:          s.newID(),
		MatchDate:   matchDate,
		HomeTeamIDs: in.HomeTeamIDs,
		AwayTeamIDs: in.AwayTeamIDs,
		FinalScore:  in.Score,
		Outcome:     in.Score.Outcome(),
		CreatedAt:   s.now().UTC(),
	}

	eventWrite := docstore.Put(stats.MatchKey(event.ID), event.ToDocument())
	if err := s.engine.Apply(ctx, event, +1, eventWrite); err != nil {
		return nil, err
	}
	log.Info("Recorded match", "eventID", event.ID, "outcome", event.Outcome,
		"home", in.Score.Home, "away", in.Score.Away)

	s.afterCommit(ctx, event, false)
	return &AddMatchResult{Event: event, Suspicious: suspicious}, nil
}

// DeleteMatch reverses an event's effects and removes its record in one
// transaction. A missing event is a no-op, not an error.
func (s *Service) DeleteMatch(ctx context.Context, eventID string) error {
	doc, err := s.store.Get(ctx, stats.MatchKey(eventID))
	if errors.Is(err, docstore.ErrNotFound) {
		log.Info("Delete of unknown match, treating as no-op", "eventID", eventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load event %s: %w", eventID, err)
	}
	event, err := kicker.EventFromDocument(doc)
	if err != nil {
		return fmt.Errorf("decode event %s: %w", eventID, err)
	}

	if err := s.engine.Apply(ctx, event, -1, docstore.Delete(stats.MatchKey(eventID))); err != nil {
		return err
	}
	log.Info("Deleted match and reversed its effects", "eventID", eventID)

	s.afterCommit(ctx, event, true)
	return nil
}

// afterCommit runs the best-effort post-commit work: the streak maxima pass
// and the fan-out message. Neither may fail the ledger call.
func (s *Service) afterCommit(ctx context.Context, event *kicker.MatchEvent, reversed bool) {
	participants := event.Participants()
	if err := s.engine.PromoteMaxima(ctx, participants); err != nil {
		log.Error("Streak maxima pass failed", "error", err, "eventID", event.ID)
	}

	topic := pubsub.EventMatchRecorded
	if reversed {
		topic = pubsub.EventMatchDeleted
	}
	if err := s.publisher.SendMessage(topic, event.ToDocument()); err != nil {
		log.Error("Failed to publish match message", "error", err, "eventID", event.ID)
	}
	if err := s.publisher.SendMessage(pubsub.EventStatsUpdated, pubsub.StatsUpdated{
		EventID:   event.ID,
		PlayerIDs: participants,
		Reversed:  reversed,
	}); err != nil {
		log.Error("Failed to publish stats-updated message", "error", err, "eventID", event.ID)
	}
}

// GetMatch loads one event by id.
func (s *Service) GetMatch(ctx context.Context, eventID string) (*kicker.MatchEvent, error) {
	doc, err := s.store.Get(ctx, stats.MatchKey(eventID))
	if err != nil {
		return nil, err
	}
	return kicker.EventFromDocument(doc)
}

// ListMatches returns one page of events ordered by match date.
func (s *Service) ListMatches(ctx context.Context, limit int, cursor string) ([]*kicker.MatchEvent, string, error) {
	page, err := s.store.Query(ctx, docstore.Query{
		Collection: stats.CollectionMatches,
		OrderBy:    "matchDate",
		Limit:      limit,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, "", err
	}
	events := make([]*kicker.MatchEvent, 0, len(page.Docs))
	for i, doc := range page.Docs {
		event, err := kicker.EventFromDocument(doc)
		if err != nil {
			log.Error("Skipping undecodable event", "error", err, "id", page.Keys[i].ID)
			continue
		}
		events = append(events, event)
	}
	return events, page.NextCursor, nil
}

// Leaderboard reads the materialized lifetime documents ordered by wins.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	page, err := s.store.Query(ctx, docstore.Query{
		Collection: stats.CollectionPlayerStats,
		OrderBy:    stats.FieldTotalWins,
		Descending: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(page.Docs))
	for i, doc := range page.Docs {
		lt := stats.LifetimeFromDocument(page.Keys[i].ID, doc)
		entry := LeaderboardEntry{
			PlayerID:          lt.PlayerID,
			TotalMatches:      lt.TotalMatches,
			TotalWins:         lt.TotalWins,
			TotalLosses:       lt.TotalLosses,
			TotalGoalsFor:     lt.TotalGoalsFor,
			TotalGoalsAgainst: lt.TotalGoalsAgainst,
			WinStreak:         lt.WinStreak,
			HighestWinStreak:  lt.HighestWinStreak,
		}
		if lt.TotalMatches > 0 {
			entry.WinPercentage = (float64(lt.TotalWins) / float64(lt.TotalMatches)) * 100
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// PlayerStats reads one player's lifetime document.
func (s *Service) PlayerStats(ctx context.Context, playerID string) (*stats.Lifetime, error) {
	doc, err := s.store.Get(ctx, stats.LifetimeKey(playerID))
	if err != nil {
		return nil, err
	}
	lt := stats.LifetimeFromDocument(playerID, doc)
	return &lt, nil
}

// PlayerBuckets reads one player's period documents, newest period first.
// periodType narrows to daily or weekly buckets; empty returns both kinds.
func (s *Service) PlayerBuckets(ctx context.Context, playerID, periodType string, limit int) ([]stats.Bucket, error) {
	q := docstore.Query{
		Collection: stats.CollectionBucketStats,
		Filters: []docstore.Filter{
			{Field: stats.FieldPlayerID, Op: docstore.OpEqual, Value: playerID},
		},
		OrderBy:    stats.FieldPeriodID,
		Descending: true,
		Limit:      limit,
	}
	if periodType != "" {
		q.Filters = append(q.Filters, docstore.Filter{
			Field: stats.FieldPeriodType, Op: docstore.OpEqual, Value: periodType,
		})
	}
	page, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	buckets := make([]stats.Bucket, 0, len(page.Docs))
	for _, doc := range page.Docs {
		buckets = append(buckets, stats.BucketFromDocument(doc))
	}
	return buckets, nil
}
