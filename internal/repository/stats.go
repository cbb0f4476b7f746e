package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tickalert/tickalert/internal/model"
)

// StatsRepository serves the dashboard's read-only aggregate queries.
type StatsRepository struct {
	db *pgxpool.Pool
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// Overview returns the headline entity counts.
func (r *StatsRepository) Overview(ctx context.Context) (*model.OverviewStats, error) {
	var s model.OverviewStats
	err := r.db.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM events WHERE active = TRUE),
		   (SELECT COUNT(*) FROM registrations),
		   (SELECT COUNT(*) FROM tickets),
		   (SELECT COUNT(*) FROM blocked_users)`,
	).Scan(&s.TotalUsers, &s.ActiveEvents, &s.TotalRegistrations, &s.TotalTickets, &s.BlockedUsers)
	if err != nil {
		return nil, fmt.Errorf("overview stats: %w", err)
	}
	return &s, nil
}

// TopEvents returns events ranked by registration count, soft-deleted ones
// included so past demand stays visible.
func (r *StatsRepository) TopEvents(ctx context.Context, limit int) ([]model.EventStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.id, e.name, e.event_date, e.active, COUNT(reg.id)
		 FROM events e
		 LEFT JOIN registrations reg ON reg.event_id = e.id
		 GROUP BY e.id, e.name, e.event_date, e.active
		 ORDER BY COUNT(reg.id) DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top events: %w", err)
	}
	defer rows.Close()

	var stats []model.EventStats
	for rows.Next() {
		var s model.EventStats
		if err := rows.Scan(&s.ID, &s.Name, &s.Date, &s.Active, &s.Registrations); err != nil {
			return nil, fmt.Errorf("scan event stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
