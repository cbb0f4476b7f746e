package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tickalert/tickalert/internal/model"
)

// RegistrationRepository handles the user-to-event subscription join table.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Register subscribes the user to the event. Returns false when the pair
// already exists; a duplicate subscribe is a no-op, not an error.
func (r *RegistrationRepository) Register(ctx context.Context, telegramID int64, eventID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO registrations (id, telegram_id, event_id, registered_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id, event_id) DO NOTHING`,
		uuid.New().String(), telegramID, eventID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Unregister removes the subscription. Returns false when no row existed.
func (r *RegistrationRepository) Unregister(ctx context.Context, telegramID int64, eventID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM registrations WHERE telegram_id = $1 AND event_id = $2`,
		telegramID, eventID,
	)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRegistrants returns the ids of every user subscribed to the event.
func (r *RegistrationRepository) ListRegistrants(ctx context.Context, eventID string) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT telegram_id FROM registrations WHERE event_id = $1`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan registrant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListForUser returns the upcoming events the user is subscribed to,
// ordered by date.
func (r *RegistrationRepository) ListForUser(ctx context.Context, telegramID int64) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.name, e.event_date, e.event_time, e.location, e.active, e.created_at
		 FROM events e
		 JOIN registrations reg ON reg.event_id = e.id
		 WHERE reg.telegram_id = $1 AND e.active = TRUE
		 ORDER BY e.event_date`,
		telegramID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
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
