package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tickalert/tickalert/internal/model"
)

// EventRepository handles persistence for events, including the scraped-event
// merge.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Add inserts a new event and returns its generated id. The date string is
// stored verbatim; unparseable dates stay visible via the fail-open
// upcoming rule.
func (r *EventRepository) Add(ctx context.Context, name, date, timeStr, location string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, event_date, event_time, location, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
		id, name, date, timeStr, location, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// Get returns a single event or ErrNotFound. Soft-deleted events are still
// returned; callers that care check Active.
func (r *EventRepository) Get(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, name, event_date, event_time, location, active, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location, &e.Active, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// SoftDelete flips the active flag. The row is retained for reporting.
func (r *EventRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET active = FALSE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpcoming returns active events whose date is today or later, ordered
// by date. The date filter runs in Go because dates are free-form strings.
func (r *EventRepository) ListUpcoming(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, event_date, event_time, location, active, created_at
		 FROM events
		 WHERE active = TRUE
		 ORDER BY event_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	today := time.Now()
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.IsUpcoming(today) {
			events = append(events, e)
		}
	}
	return events, rows.Err()
}

// MergeScraped inserts the scraped games that are not already present among
// the upcoming events, keyed by (name, date). All inserts share one
// transaction. Returns the number of events inserted; running the same list
// twice inserts on the first run and zero on the second.
func (r *EventRepository) MergeScraped(ctx context.Context, games []model.ScrapedGame) (int, error) {
	existing, err := r.ListUpcoming(ctx)
	if err != nil {
		return 0, fmt.Errorf("load existing events: %w", err)
	}
	missing := missingGames(existing, games)
	if len(missing) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	for _, g := range missing {
		_, err = tx.Exec(ctx,
			`INSERT INTO events (id, name, event_date, event_time, location, active, created_at)
			 VALUES ($1, $2, $3, $4, $5, TRUE, $6)`,
			uuid.New().String(), g.Name, g.Date, g.Time, g.Location, now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert scraped event: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(missing), nil
}

// missingGames filters games whose (name, date) key is absent from the
// existing events. Pure; split out for testability.
func missingGames(existing []model.Event, games []model.ScrapedGame) []model.ScrapedGame {
	type key struct{ name, date string }
	seen := make(map[key]struct{}, len(existing))
	for _, e := range existing {
		seen[key{e.Name, e.Date}] = struct{}{}
	}

	var missing []model.ScrapedGame
	for _, g := range games {
		k := key{g.Name, g.Date}
		if _, ok := seen[k]; ok {
			continue
		}
		// Guard against duplicate keys inside one scraped batch.
		seen[k] = struct{}{}
		missing = append(missing, g)
	}
	return missing
}
