package kicker

import (
	"fmt"
	"time"
)

// Outcome is the result of a match as derived from its final score.
type Outcome string

const (
	OutcomeHomeWon Outcome = "HOME_WON"
	OutcomeAwayWon Outcome = "AWAY_WON"
	OutcomeDraw    Outcome = "DRAW"
)

// MaxScore is the highest score a side can legally reach.
const MaxScore = 11

// Score is the final score of a match, home side first.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Outcome derives the match result from the score.
func (s Score) Outcome() Outcome {
	switch {
	case s.Home > s.Away:
		return OutcomeHomeWon
	case s.Away > s.Home:
		return OutcomeAwayWon
	default:
		return OutcomeDraw
	}
}

// Winning returns the higher of the two scores.
func (s Score) Winning() int {
	if s.Home > s.Away {
		return s.Home
	}
	return s.Away
}

// Losing returns the lower of the two scores.
func (s Score) Losing() int {
	if s.Home > s.Away {
		return s.Away
	}
	return s.Home
}

// Team indexes into a MatchEvent's two sides.
const (
	TeamHome = 0
	TeamAway = 1
)

// MatchEvent is one recorded match outcome. Events are immutable once
// committed; their effects are reversed by deleting the event, never by
// editing it.
type MatchEvent struct {
	ID          string    `json:"id"`
	MatchDate   time.Time `json:"matchDate"`
	HomeTeamIDs []string  `json:"homeTeamIds"`
	AwayTeamIDs []string  `json:"awayTeamIds"`
	FinalScore  Score     `json:"finalScore"`
	Outcome     Outcome   `json:"outcome"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Participants returns every player id in the match, home side first.
func (e *MatchEvent) Participants() []string {
	ids := make([]string, 0, len(e.HomeTeamIDs)+len(e.AwayTeamIDs))
	ids = append(ids, e.HomeTeamIDs...)
	ids = append(ids, e.AwayTeamIDs...)
	return ids
}

// TeamOf returns TeamHome or TeamAway for the given player, or -1 when the
// player did not take part in the match.
func (e *MatchEvent) TeamOf(playerID string) int {
	for _, id := range e.HomeTeamIDs {
		if id == playerID {
			return TeamHome
		}
	}
	for _, id := range e.AwayTeamIDs {
		if id == playerID {
			return TeamAway
		}
	}
	return -1
}

// ToDocument flattens the event into the persisted document layout.
func (e *MatchEvent) ToDocument() map[string]any {
	home := make([]any, len(e.HomeTeamIDs))
	for i, id := range e.HomeTeamIDs {
		home[i] = id
	}
	away := make([]any, len(e.AwayTeamIDs))
	for i, id := range e.AwayTeamIDs {
		away[i] = id
	}
	return map[string]any{
		"id":          e.ID,
		"matchDate":   e.MatchDate.UTC().Format(time.RFC3339),
		"homeTeamIds": home,
		"awayTeamIds": away,
		"homeScore":   int64(e.FinalScore.Home),
		"awayScore":   int64(e.FinalScore.Away),
		"outcome":     string(e.Outcome),
		"createdAt":   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EventFromDocument rebuilds a MatchEvent from its persisted document.
func EventFromDocument(doc map[string]any) (*MatchEvent, error) {
	id, _ := doc["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("match document has no id")
	}
	matchDate, err := parseDocTime(doc["matchDate"])
	if err != nil {
		return nil, fmt.Errorf("match %s: bad matchDate: %w", id, err)
	}
	createdAt, err := parseDocTime(doc["createdAt"])
	if err != nil {
		createdAt = matchDate
	}
	e := &MatchEvent{
		ID:          id,
		MatchDate:   matchDate,
		HomeTeamIDs: asStringSlice(doc["homeTeamIds"]),
		AwayTeamIDs: asStringSlice(doc["awayTeamIds"]),
		FinalScore: Score{
			Home: asInt(doc["homeScore"]),
			Away: asInt(doc["awayScore"]),
		},
		CreatedAt: createdAt,
	}
	e.Outcome = e.FinalScore.Outcome()
	return e, nil
}

func parseDocTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected RFC 3339 string, got %T", v)
	}
	return time.Parse(time.RFC3339, s)
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// asInt coerces the numeric types the document adapters produce. JSON decoding
// yields float64, the in-memory store keeps int64.
func asInt(v any) int {
	switch n := v.(type) {
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
