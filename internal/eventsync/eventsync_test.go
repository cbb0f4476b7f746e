package eventsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickalert/tickalert/internal/model"
)

type fakeFetcher struct {
	mu    sync.Mutex
	games []model.ScrapedGame
	calls int
}

func (f *fakeFetcher) FetchUpcomingGames(_ context.Context) []model.ScrapedGame {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.games
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMerger struct {
	mu     sync.Mutex
	merged [][]model.ScrapedGame
	err    error
}

func (m *fakeMerger) MergeScraped(_ context.Context, games []model.ScrapedGame) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.merged = append(m.merged, games)
	return len(games), nil
}

func (m *fakeMerger) mergeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.merged)
}

func newTestSyncer(fetcher *fakeFetcher, merger *fakeMerger, interval time.Duration) *Syncer {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), fetcher, merger, interval)
}

func TestRunOnce_MergesFetchedGames(t *testing.T) {
	games := []model.ScrapedGame{
		{Name: "Lions vs Tigers", Date: "2026-09-15", Time: "20:30"},
		{Name: "Eagles vs Hawks", Date: "2026-09-08", Time: "19:00"},
	}
	fetcher := &fakeFetcher{games: games}
	merger := &fakeMerger{}

	newTestSyncer(fetcher, merger, time.Hour).RunOnce(context.Background())

	require.Equal(t, 1, merger.mergeCount())
	assert.Equal(t, games, merger.merged[0])
}

func TestRunOnce_EmptyFetchSkipsMerge(t *testing.T) {
	fetcher := &fakeFetcher{}
	merger := &fakeMerger{}

	newTestSyncer(fetcher, merger, time.Hour).RunOnce(context.Background())

	assert.Equal(t, 1, fetcher.callCount())
	assert.Zero(t, merger.mergeCount())
}

func TestRunOnce_MergeErrorDoesNotPanic(t *testing.T) {
	fetcher := &fakeFetcher{games: []model.ScrapedGame{{Name: "A vs B", Date: "2026-09-01"}}}
	merger := &fakeMerger{err: errors.New("db down")}

	s := newTestSyncer(fetcher, merger, time.Hour)
	s.RunOnce(context.Background())

	// The failed run leaves nothing merged; a later run retries cleanly.
	assert.Zero(t, merger.mergeCount())
	merger.err = nil
	s.RunOnce(context.Background())
	assert.Equal(t, 1, merger.mergeCount())
}

func TestStart_TicksAndStops(t *testing.T) {
	fetcher := &fakeFetcher{}
	merger := &fakeMerger{}
	s := newTestSyncer(fetcher, merger, 5*time.Millisecond)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return fetcher.callCount() >= 2 },
		time.Second, time.Millisecond)

	s.Stop()
	stopped := fetcher.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, fetcher.callCount(), stopped+1, "loop keeps running after Stop")
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := newTestSyncer(fetcher, &fakeMerger{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return fetcher.callCount() >= 1 },
		time.Second, time.Millisecond)

	cancel()
	stopped := fetcher.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, fetcher.callCount(), stopped+1)
}
