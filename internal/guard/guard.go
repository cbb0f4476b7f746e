// Package guard implements the access checks evaluated before any
// state-mutating operation: admin membership and block status.
package guard

import "context"

// BlockChecker answers whether a user id is currently blocked.
type BlockChecker interface {
	IsBlocked(ctx context.Context, telegramID int64) (bool, error)
}

// Guard combines the fixed admin allowlist with the blocked-user store.
type Guard struct {
	admins  map[int64]struct{}
	blocked BlockChecker
}

// New builds a Guard from an explicit admin id list. The list is copied, so
// later mutation of the slice has no effect.
func New(adminIDs []int64, blocked BlockChecker) *Guard {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Guard{admins: admins, blocked: blocked}
}

// IsAdmin reports membership in the configured admin set. Pure, no I/O.
func (g *Guard) IsAdmin(telegramID int64) bool {
	_, ok := g.admins[telegramID]
	return ok
}

// IsBlocked reports whether the user is currently blocked. One read against
// the store; callers re-check at send time when it matters.
func (g *Guard) IsBlocked(ctx context.Context, telegramID int64) (bool, error) {
	return g.blocked.IsBlocked(ctx, telegramID)
}
