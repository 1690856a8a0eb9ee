package pubsub

import "cloud.google.com/go/pubsub"

type client struct {
	client   *pubsub.Client
	teardown func()
}

// EventType represents the type of event/message sent via pubsub.
type EventType string

const (
	// EventMatchRecorded fans out after a match event and its aggregates
	// have committed.
	EventMatchRecorded EventType = "match-recorded"
	// EventMatchDeleted fans out after a match event has been reversed.
	EventMatchDeleted EventType = "match-deleted"
	// EventStatsUpdated carries the participant ids whose aggregates moved,
	// for downstream reconciliation consumers.
	EventStatsUpdated EventType = "stats-updated"
)

// StatsUpdated is the payload published on EventStatsUpdated.
type StatsUpdated struct {
	EventID   string   `msgpack:"event_id"`
	PlayerIDs []string `msgpack:"player_ids"`
	Reversed  bool     `msgpack:"reversed"`
}
