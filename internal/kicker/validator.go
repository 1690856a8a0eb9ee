package kicker

import (
	"fmt"
	"time"
)

// Validation rule identifiers, in the order they are checked.
const (
	RuleTeamSize        = "team-size"
	RuleScoreRange      = "score-range"
	RuleDuplicatePlayer = "duplicate-player"
	RuleScoreLegality   = "score-legality"
	RuleMatchDate       = "match-date"
)

// ValidationError rejects a proposed match before anything is persisted.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid match (%s): %s", e.Rule, e.Detail)
}

// Validate checks a proposed match outcome. Rules are applied in order and the
// first failure wins. The returned bool flags a suspicious but accepted score:
// neither side reached 10 and the score is not the 0-0 placeholder.
func Validate(homeIDs, awayIDs []string, score Score) (bool, error) {
	if len(homeIDs) == 0 || len(awayIDs) == 0 {
		return false, &ValidationError{RuleTeamSize, "both teams must have players"}
	}
	if len(homeIDs) != len(awayIDs) {
		return false, &ValidationError{RuleTeamSize, fmt.Sprintf("unequal team sizes %d vs %d", len(homeIDs), len(awayIDs))}
	}
	if len(homeIDs) > 2 {
		return false, &ValidationError{RuleTeamSize, fmt.Sprintf("team size %d exceeds 2", len(homeIDs))}
	}

	if score.Home < 0 || score.Away < 0 {
		return false, &ValidationError{RuleScoreRange, fmt.Sprintf("negative score %d-%d", score.Home, score.Away)}
	}
	if score.Home > MaxScore || score.Away > MaxScore {
		return false, &ValidationError{RuleScoreRange, fmt.Sprintf("score %d-%d exceeds %d", score.Home, score.Away, MaxScore)}
	}

	seen := make(map[string]struct{}, len(homeIDs)+len(awayIDs))
	for _, id := range append(append([]string{}, homeIDs...), awayIDs...) {
		if _, ok := seen[id]; ok {
			return false, &ValidationError{RuleDuplicatePlayer, fmt.Sprintf("player %s appears more than once", id)}
		}
		seen[id] = struct{}{}
	}

	// A decided match ends at 10, or at 11 for the sucker-punch finish.
	// Both sides at 10 or above is unreachable under those rules.
	if score.Home >= 10 && score.Away >= 10 {
		return false, &ValidationError{RuleScoreLegality, fmt.Sprintf("impossible score %d-%d", score.Home, score.Away)}
	}

	suspicious := score.Winning() < 10 && !(score.Home == 0 && score.Away == 0)
	return suspicious, nil
}

// ParseMatchDate validates and parses an optional caller-supplied match date.
// An empty value resolves to the current UTC time.
func ParseMatchDate(raw string, now func() time.Time) (time.Time, error) {
	if raw == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &ValidationError{RuleMatchDate, fmt.Sprintf("cannot parse %q as RFC 3339", raw)}
	}
	return t.UTC(), nil
}
