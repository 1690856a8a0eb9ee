package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var (
	matchDate    string
	listLimit    int
	listCursor   string
	statsPeriod  string
	backfillFrom string
	backfillTo   string
)

func init() {
	addMatchCmd.Flags().StringVar(&matchDate, "date", "", "Match date as RFC 3339, defaults to now")
	matchesCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum matches to list")
	matchesCmd.Flags().StringVar(&listCursor, "cursor", "", "Pagination cursor from a previous page")
	playerStatsCmd.Flags().StringVar(&statsPeriod, "period", "", "Include period buckets: daily or weekly")
	backfillCmd.Flags().StringVar(&backfillFrom, "start", "", "Range start as RFC 3339, empty for open")
	backfillCmd.Flags().StringVar(&backfillTo, "end", "", "Range end as RFC 3339, empty for open")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(addMatchCmd)
	rootCmd.AddCommand(deleteMatchCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(playerStatsCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var addMatchCmd = &cobra.Command{
	Use:   "add-match <home-ids> <away-ids> <home-score> <away-score>",
	Short: "Record a match outcome (player ids comma-separated)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var home, away int
		if _, err := fmt.Sscanf(args[2]+" "+args[3], "%d %d", &home, &away); err != nil {
			return fmt.Errorf("scores must be integers: %w", err)
		}
		payload := map[string]any{
			"homeTeamIds": strings.Split(args[0], ","),
			"awayTeamIds": strings.Split(args[1], ","),
			"score":       map[string]int{"home": home, "away": away},
		}
		if matchDate != "" {
			payload["matchDate"] = matchDate
		}
		return performPostRequest("/matches", payload)
	},
}

var deleteMatchCmd = &cobra.Command{
	Use:   "delete-match <event-id>",
	Short: "Reverse a recorded match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performDeleteRequest("/matches?id=" + url.QueryEscape(args[0]))
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List recorded matches in date order",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := fmt.Sprintf("/matches?limit=%d", listLimit)
		if listCursor != "" {
			endpoint += "&cursor=" + url.QueryEscape(listCursor)
		}
		return performGetRequest(endpoint)
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the lifetime leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/leaderboard")
	},
}

var playerStatsCmd = &cobra.Command{
	Use:   "player-stats <player-id>",
	Short: "Show one player's lifetime stats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint := "/player-stats?playerID=" + url.QueryEscape(args[0])
		if statsPeriod != "" {
			endpoint += "&period=" + url.QueryEscape(statsPeriod)
		}
		return performGetRequest(endpoint)
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute aggregates from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if backfillFrom != "" {
			params.Set("start", backfillFrom)
		}
		if backfillTo != "" {
			params.Set("end", backfillTo)
		}
		endpoint := "/backfill"
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
		return performPostRequest(endpoint, nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, payload any) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	resp, err := http.Post(url, "application/json", body)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performDeleteRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
