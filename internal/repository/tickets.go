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

// TicketRepository handles persistence for posted tickets.
type TicketRepository struct {
	db *pgxpool.Pool
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

// Add inserts a new active ticket and returns its generated id.
func (r *TicketRepository) Add(ctx context.Context, eventID string, sellerID int64, description string) (string, error) {
	id := uuid.New().String()
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (id, event_id, seller_telegram_id, description, posted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, eventID, sellerID, description, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert ticket: %w", err)
	}
	return id, nil
}

// Get returns a single ticket or ErrNotFound. Soft-deleted tickets are
// still returned; callers check IsActive.
func (r *TicketRepository) Get(ctx context.Context, id string) (*model.Ticket, error) {
	var t model.Ticket
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, seller_telegram_id, description, posted_at, deleted_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.EventID, &t.SellerID, &t.Description, &t.PostedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return &t, nil
}

// SoftDelete stamps deleted_at, keeping the row for reporting. Deleting an
// already deleted ticket keeps the original timestamp.
func (r *TicketRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tickets SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("soft delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListActiveForEvent returns the event's active tickets with seller display
// fields, newest first.
func (r *TicketRepository) ListActiveForEvent(ctx context.Context, eventID string) ([]model.TicketWithSeller, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.event_id, t.seller_telegram_id, t.description, t.posted_at, t.deleted_at,
		        u.username, u.first_name
		 FROM tickets t
		 JOIN users u ON u.telegram_id = t.seller_telegram_id
		 WHERE t.event_id = $1 AND t.deleted_at IS NULL
		 ORDER BY t.posted_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list event tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.TicketWithSeller
	for rows.Next() {
		var t model.TicketWithSeller
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.SellerID, &t.Description, &t.PostedAt, &t.DeletedAt,
			&t.SellerUsername, &t.SellerFirstName,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ListActiveForSeller returns the seller's active tickets with event names,
// newest first.
func (r *TicketRepository) ListActiveForSeller(ctx context.Context, sellerID int64) ([]model.TicketWithEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.event_id, t.seller_telegram_id, t.description, t.posted_at, t.deleted_at,
		        e.name
		 FROM tickets t
		 JOIN events e ON e.id = t.event_id
		 WHERE t.seller_telegram_id = $1 AND t.deleted_at IS NULL
		 ORDER BY t.posted_at DESC`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list seller tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.TicketWithEvent
	for rows.Next() {
		var t model.TicketWithEvent
		if err := rows.Scan(
			&t.ID, &t.EventID, &t.SellerID, &t.Description, &t.PostedAt, &t.DeletedAt,
			&t.EventName,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
