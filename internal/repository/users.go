package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles persistence for users and the blocked-user set.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user on first contact and refreshes the display fields
// on every later one. Idempotent by design: the bot calls it on every update.
func (r *UserRepository) Upsert(ctx context.Context, telegramID int64, username, firstName string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (telegram_id, username, first_name, joined_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (telegram_id)
		 DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name`,
		telegramID, username, firstName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// IsBlocked reports whether a blocked_users row exists for the id.
func (r *UserRepository) IsBlocked(ctx context.Context, telegramID int64) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM blocked_users WHERE telegram_id = $1)`,
		telegramID,
	).Scan(&blocked)
	if err != nil {
		return false, fmt.Errorf("check blocked: %w", err)
	}
	return blocked, nil
}

// Block inserts or refreshes the block row for the id. Blocking an already
// blocked user just updates the reason.
func (r *UserRepository) Block(ctx context.Context, telegramID int64, reason string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO blocked_users (telegram_id, blocked_at, reason)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (telegram_id)
		 DO UPDATE SET reason = EXCLUDED.reason`,
		telegramID, time.Now().UTC(), reason,
	)
	if err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	return nil
}

// Unblock removes the block row. Unblocking a user who is not blocked is a
// no-op, not an error.
func (r *UserRepository) Unblock(ctx context.Context, telegramID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM blocked_users WHERE telegram_id = $1`,
		telegramID,
	)
	if err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	return nil
}
