// Package eventsync keeps the event table topped up with freshly scraped
// games: once at startup, then on a fixed period.
package eventsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/metrics"
	"github.com/tickalert/tickalert/internal/model"
)

// GameFetcher produces the current upcoming-game list. An empty list means
// either "nothing upcoming" or "fetch failed"; either way there is nothing
// to merge.
type GameFetcher interface {
	FetchUpcomingGames(ctx context.Context) []model.ScrapedGame
}

// EventMerger inserts scraped games that are not already present.
type EventMerger interface {
	MergeScraped(ctx context.Context, games []model.ScrapedGame) (int, error)
}

// Syncer runs the fetch-and-merge cycle.
type Syncer struct {
	log      *slog.Logger
	fetcher  GameFetcher
	merger   EventMerger
	interval time.Duration
	stop     chan struct{}
}

// New constructs a Syncer with the given period between runs.
func New(log *slog.Logger, fetcher GameFetcher, merger EventMerger, interval time.Duration) *Syncer {
	return &Syncer{
		log:      log,
		fetcher:  fetcher,
		merger:   merger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// RunOnce performs a single fetch-and-merge. A fetch or merge failure aborts
// the run without mutating state; the next scheduled tick retries.
func (s *Syncer) RunOnce(ctx context.Context) {
	const op = "eventsync.Syncer.RunOnce"
	log := s.log.With(slog.String("op", op))

	games := s.fetcher.FetchUpcomingGames(ctx)
	if len(games) == 0 {
		metrics.SyncRuns.WithLabelValues("empty").Inc()
		return
	}

	added, err := s.merger.MergeScraped(ctx, games)
	if err != nil {
		log.Error("failed to merge scraped events", sl.Err(err))
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return
	}

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	metrics.EventsInserted.Add(float64(added))
	log.Info("event sync complete",
		slog.Int("fetched", len(games)), slog.Int("added", added))
}

// Start launches the periodic loop in a background goroutine. It returns
// immediately; the loop ends when ctx is canceled or Stop is called.
func (s *Syncer) Start(ctx context.Context) {
	const op = "eventsync.Syncer.Start"
	log := s.log.With(slog.String("op", op))

	ticker := time.NewTicker(s.interval)
	log.Info("starting periodic event sync", slog.Duration("interval", s.interval))

	go func() {
		defer ticker.Stop()
		defer log.Info("stopping periodic event sync")

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Stop ends the periodic loop. Safe to call once.
func (s *Syncer) Stop() {
	close(s.stop)
}
