// Package model defines the core domain types for the ticket-alert bot.
package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a person who has interacted with the bot at least once.
// Identified by their transport-level numeric id; never deleted.
type User struct {
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	JoinedAt   time.Time `json:"joined_at"`
}

// DisplayHandle returns "@username" when the user has one, falling back to
// the first name and finally a generic label.
func (u *User) DisplayHandle() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "user"
}

// BlockedUser marks a user id as blocked. Presence of a row means blocked;
// the row may predate or postdate the corresponding User row.
type BlockedUser struct {
	TelegramID int64     `json:"telegram_id"`
	BlockedAt  time.Time `json:"blocked_at"`
	Reason     string    `json:"reason,omitempty"`
}

// Event is a game or happening that users can subscribe to for ticket alerts.
// Removal is a soft delete: Active flips to false, the row stays.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Time      string    `json:"time,omitempty"`
	Location  string    `json:"location,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsUpcoming reports whether the event should still be shown to users:
// it must be active, and its date must parse to today or later. Dates in an
// unrecognized format keep the event visible rather than hiding it.
// The comparison is on calendar dates, so today's zone never shifts an
// event dated today into the past.
func (e *Event) IsUpcoming(today time.Time) bool {
	if !e.Active {
		return false
	}
	d, ok := ParseEventDate(e.Date)
	if !ok {
		return true
	}
	ey, em, ed := d.Date()
	ty, tm, td := today.Date()
	eventDay := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	currentDay := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return !eventDay.Before(currentDay)
}

// Label renders the one-line button caption for the event.
func (e *Event) Label() string {
	label := fmt.Sprintf("📅 %s — %s %s", e.Name, e.Date, e.Time)
	if e.Location != "" {
		label += " | " + e.Location
	}
	return strings.TrimSpace(label)
}

// eventDateFormats are the two recognized date layouts: ISO and the short
// day.month.year form admins tend to type.
var eventDateFormats = []string{"2006-01-02", "2.1.06"}

// ParseEventDate parses an event date string in either recognized format.
// The second return value is false when neither format matches.
func ParseEventDate(s string) (time.Time, bool) {
	for _, layout := range eventDateFormats {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// Registration subscribes a user to ticket alerts for one event.
// The (telegram_id, event_id) pair is unique.
type Registration struct {
	ID           string    `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	EventID      string    `json:"event_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Ticket is a seller's offer for an event. Deletion is a soft delete:
// DeletedAt is set and the row is retained for reporting.
type Ticket struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	SellerID    int64      `json:"seller_id"`
	Description string     `json:"description"`
	PostedAt    time.Time  `json:"posted_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// IsActive reports whether the ticket is still offered.
func (t *Ticket) IsActive() bool {
	return t.DeletedAt == nil
}

// TicketWithSeller is a ticket joined with its seller's display fields,
// as listed under an event.
type TicketWithSeller struct {
	Ticket
	SellerUsername  string `json:"seller_username,omitempty"`
	SellerFirstName string `json:"seller_first_name,omitempty"`
}

// SellerHandle mirrors User.DisplayHandle for the joined seller columns.
func (t *TicketWithSeller) SellerHandle() string {
	if t.SellerUsername != "" {
		return "@" + t.SellerUsername
	}
	if t.SellerFirstName != "" {
		return t.SellerFirstName
	}
	return "user"
}

// TicketWithEvent is a ticket joined with its event's name, as listed for
// a seller.
type TicketWithEvent struct {
	Ticket
	EventName string `json:"event_name"`
}

// ScrapedGame is one upcoming game as returned by the scores provider.
type ScrapedGame struct {
	Name     string `json:"name"`
	Date     string `json:"date"` // "2006-01-02"
	Time     string `json:"time"` // "15:04"
	Location string `json:"location"`
}

// Button is a single inline choice offered under an outbound message.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Outgoing is one message directed at a recipient over the transport
// gateway. A non-empty EditMessageID turns it into an edit of a previously
// sent message instead of a new one.
type Outgoing struct {
	RecipientID   int64      `json:"recipient_id"`
	Text          string     `json:"text"`
	Buttons       [][]Button `json:"buttons,omitempty"`
	EditMessageID string     `json:"edit_message_id,omitempty"`
}

// OverviewStats is the dashboard's headline counters.
type OverviewStats struct {
	TotalUsers         int64 `json:"total_users"`
	ActiveEvents       int64 `json:"active_events"`
	TotalRegistrations int64 `json:"total_registrations"`
	TotalTickets       int64 `json:"total_tickets"`
	BlockedUsers       int64 `json:"blocked_users"`
}

// EventStats is one row of the top-events-by-registrations report.
type EventStats struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	Active        bool   `json:"active"`
	Registrations int64  `json:"registrations"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
