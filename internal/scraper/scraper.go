// Package scraper fetches upcoming games from the 365scores-style API that
// feeds the event deduplicator.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
)

// statusNotStarted is the provider's status group for games that have not
// kicked off yet.
const statusNotStarted = 2

// maxGames caps how many upcoming games one fetch yields.
const maxGames = 5

// Client fetches upcoming games.
type Client struct {
	log    *slog.Logger
	apiURL string
	httpc  *http.Client
}

// New constructs a Client. timeout bounds the whole fetch call.
func New(log *slog.Logger, apiURL string, timeout time.Duration) *Client {
	return &Client{
		log:    log,
		apiURL: apiURL,
		httpc:  &http.Client{Timeout: timeout},
	}
}

type gamesResponse struct {
	Games []struct {
		ID             int64  `json:"id"`
		StatusGroup    int    `json:"statusGroup"`
		StartTime      string `json:"startTime"`
		HomeCompetitor struct {
			Name string `json:"name"`
		} `json:"homeCompetitor"`
		AwayCompetitor struct {
			Name string `json:"name"`
		} `json:"awayCompetitor"`
		Venue struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"games"`
}

// FetchUpcomingGames returns not-yet-started games sorted by date ascending,
// capped at maxGames. Fetch or decode failures are logged and yield an empty
// list; they never propagate to the scheduler.
func (c *Client) FetchUpcomingGames(ctx context.Context) []model.ScrapedGame {
	const op = "scraper.Client.FetchUpcomingGames"
	log := c.log.With(slog.String("op", op))

	data, err := c.fetch(ctx)
	if err != nil {
		log.Error("failed to fetch scores data", sl.Err(err))
		return nil
	}

	var games []model.ScrapedGame
	for _, g := range data.Games {
		if g.StatusGroup != statusNotStarted {
			continue
		}
		start, err := parseStartTime(g.StartTime)
		if err != nil {
			log.Warn("bad startTime",
				slog.Int64("game", g.ID), slog.String("startTime", g.StartTime))
			continue
		}
		games = append(games, model.ScrapedGame{
			Name:     g.HomeCompetitor.Name + " vs " + g.AwayCompetitor.Name,
			Date:     start.Format("2006-01-02"),
			Time:     start.Format("15:04"),
			Location: g.Venue.Name,
		})
	}

	sort.Slice(games, func(i, j int) bool { return games[i].Date < games[j].Date })
	if len(games) > maxGames {
		games = games[:maxGames]
	}

	log.Info("fetched upcoming games", slog.Int("count", len(games)))
	return games
}

func (c *Client) fetch(ctx context.Context) (*gamesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch games: status %d", resp.StatusCode)
	}

	var data gamesResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return &data, nil
}

// parseStartTime accepts the provider's ISO timestamps with or without a
// zone offset.
func parseStartTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
