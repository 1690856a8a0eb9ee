package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/kickerhub/kickerstats/internal/aggregator"
	"github.com/kickerhub/kickerstats/internal/docstore"
	"github.com/kickerhub/kickerstats/internal/kicker"
	"github.com/kickerhub/kickerstats/internal/ledger"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// MatchesHandler dispatches the /matches resource by method: POST records a
// match, DELETE reverses one, GET lists the log.
func (s *Server) MatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.addMatch(w, r)
		case http.MethodDelete:
			s.deleteMatch(w, r)
		case http.MethodGet:
			s.listMatches(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func (s *Server) addMatch(w http.ResponseWriter, r *http.Request) {
	var in ledger.AddMatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	result, err := s.Ledger.AddMatch(r.Context(), in)
	if err != nil {
		var verr *kicker.ValidationError
		switch {
		case errors.As(err, &verr):
			http.Error(w, verr.Error(), http.StatusBadRequest)
		case errors.Is(err, aggregator.ErrRetriesExhausted):
			http.Error(w, "Store contention, try again", http.StatusServiceUnavailable)
		default:
			http.Error(w, "Failed to record match", http.StatusInternalServerError)
			log.Error("Failed to record match", "error", err)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	eventID := r.URL.Query().Get("id")
	if eventID == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}
	if err := s.Ledger.DeleteMatch(r.Context(), eventID); err != nil {
		if errors.Is(err, aggregator.ErrRetriesExhausted) {
			http.Error(w, "Store contention, try again", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to delete match", http.StatusInternalServerError)
		log.Error("Failed to delete match", "error", err, "id", eventID)
		return
	}
	// Reversal of an unknown event is a no-op, so this is 200 either way.
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Deleted match %s", eventID)
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 50)
	cursor := r.URL.Query().Get("cursor")
	events, next, err := s.Ledger.ListMatches(r.Context(), limit, cursor)
	if err != nil {
		http.Error(w, "Failed to list matches", http.StatusInternalServerError)
		log.Error("Failed to list matches", "error", err)
		return
	}
	resp := struct {
		Matches    []*kicker.MatchEvent `json:"matches"`
		NextCursor string               `json:"nextCursor,omitempty"`
	}{Matches: events, NextCursor: next}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("Failed to encode matches to JSON", "error", err)
	}
}

func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := intParam(r, "limit", 25)
		entries, err := s.Ledger.Leaderboard(r.Context(), limit)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			log.Error("Failed to encode leaderboard to JSON", "error", err)
		}
	}
}

func (s *Server) PlayerStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "Missing playerID parameter", http.StatusBadRequest)
			return
		}
		lifetime, err := s.Ledger.PlayerStats(r.Context(), playerID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				http.Error(w, "Unknown player", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get player stats", http.StatusInternalServerError)
			log.Error("Failed to get player stats", "error", err, "playerID", playerID)
			return
		}
		resp := map[string]any{"lifetime": lifetime}
		if period := r.URL.Query().Get("period"); period != "" {
			buckets, err := s.Ledger.PlayerBuckets(r.Context(), playerID, period, intParam(r, "limit", 12))
			if err != nil {
				http.Error(w, "Failed to get period stats", http.StatusInternalServerError)
				log.Error("Failed to get period stats", "error", err, "playerID", playerID)
				return
			}
			resp["buckets"] = buckets
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("Failed to encode player stats to JSON", "error", err)
		}
	}
}

// BackfillHandler recomputes aggregates from the event log. Optional start
// and end query parameters (RFC 3339) bound the replayed range; omitting both
// rebuilds lifetime documents too.
func (s *Server) BackfillHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		start, err := timeParam(r, "start")
		if err != nil {
			http.Error(w, "Invalid start parameter", http.StatusBadRequest)
			return
		}
		end, err := timeParam(r, "end")
		if err != nil {
			http.Error(w, "Invalid end parameter", http.StatusBadRequest)
			return
		}
		result, err := s.Backfill.Run(r.Context(), start, end)
		if err != nil {
			http.Error(w, "Backfill failed", http.StatusInternalServerError)
			log.Error("Backfill failed", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Error("Failed to write response", "error", err)
		}
	}
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func timeParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
