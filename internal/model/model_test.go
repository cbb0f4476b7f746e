package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventDate_BothFormats(t *testing.T) {
	iso, ok := ParseEventDate("2026-05-01")
	require.True(t, ok)

	short, ok := ParseEventDate("1.5.26")
	require.True(t, ok)

	assert.Equal(t, iso, short, "both formats must parse to the same calendar date")
	assert.Equal(t, 2026, iso.Year())
	assert.Equal(t, time.May, iso.Month())
	assert.Equal(t, 1, iso.Day())
}

func TestParseEventDate_Unparseable(t *testing.T) {
	for _, input := range []string{"not-a-date", "15/03/2026", "", "tomorrow"} {
		_, ok := ParseEventDate(input)
		assert.False(t, ok, "input %q should not parse", input)
	}
}

func TestEventIsUpcoming(t *testing.T) {
	today := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		want  bool
	}{
		{"future date", Event{Active: true, Date: "2026-05-01"}, true},
		{"today counts as upcoming", Event{Active: true, Date: "2026-03-10"}, true},
		{"past date", Event{Active: true, Date: "2026-03-09"}, false},
		{"short format future", Event{Active: true, Date: "1.5.26"}, true},
		{"unparseable date stays visible", Event{Active: true, Date: "not-a-date"}, true},
		{"inactive hides future event", Event{Active: false, Date: "2026-05-01"}, false},
		{"inactive hides unparseable too", Event{Active: false, Date: "???"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.IsUpcoming(today))
		})
	}
}

func TestEventIsUpcoming_ZoneIndependent(t *testing.T) {
	event := Event{Active: true, Date: "2026-03-10"}

	// Same calendar day everywhere: an event dated today stays upcoming no
	// matter which zone the clock reads it in.
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("UTC-5", -5*3600),
		time.FixedZone("UTC-11", -11*3600),
		time.FixedZone("UTC+3", 3*3600),
		time.FixedZone("UTC+13", 13*3600),
	}
	for _, zone := range zones {
		today := time.Date(2026, time.March, 10, 12, 0, 0, 0, zone)
		assert.True(t, event.IsUpcoming(today), "zone %s", zone)

		tomorrow := time.Date(2026, time.March, 11, 0, 30, 0, 0, zone)
		assert.False(t, event.IsUpcoming(tomorrow), "zone %s", zone)
	}
}

func TestEventLabel(t *testing.T) {
	e := Event{Name: "Derby", Date: "2026-05-01", Time: "20:30", Location: "City Arena"}
	assert.Equal(t, "📅 Derby — 2026-05-01 20:30 | City Arena", e.Label())

	bare := Event{Name: "Derby", Date: "2026-05-01"}
	assert.Equal(t, "📅 Derby — 2026-05-01", bare.Label())
}

func TestUserDisplayHandle(t *testing.T) {
	assert.Equal(t, "@ada", (&User{Username: "ada", FirstName: "Ada"}).DisplayHandle())
	assert.Equal(t, "Ada", (&User{FirstName: "Ada"}).DisplayHandle())
	assert.Equal(t, "user", (&User{}).DisplayHandle())
}

func TestTicketIsActive(t *testing.T) {
	now := time.Now()
	assert.True(t, (&Ticket{}).IsActive())
	assert.False(t, (&Ticket{DeletedAt: &now}).IsActive())
}
