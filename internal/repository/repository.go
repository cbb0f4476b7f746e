// Package repository implements all database access for the bot.
// It uses pgx directly (no ORM); every logical operation runs in a single
// transaction or a single statement, so an interrupted operation never
// leaves entities half-written.
package repository

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")
