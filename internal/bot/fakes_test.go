package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tickalert/tickalert/internal/guard"
	"github.com/tickalert/tickalert/internal/model"
	"github.com/tickalert/tickalert/internal/notify"
)

// fakeStore is an in-memory stand-in for all repository interfaces plus the
// guard's block checker.
type fakeStore struct {
	mu      sync.Mutex
	users   map[int64]model.User
	blocked map[int64]string
	events  map[string]model.Event
	regs    map[string][]int64 // event id -> registrant ids, insertion order
	tickets map[string]model.Ticket
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]model.User),
		blocked: make(map[int64]string),
		events:  make(map[string]model.Event),
		regs:    make(map[string][]int64),
		tickets: make(map[string]model.Ticket),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) Upsert(_ context.Context, id int64, username, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = model.User{TelegramID: id, JoinedAt: time.Now()}
	}
	u.Username = username
	u.FirstName = firstName
	s.users[id] = u
	return nil
}

func (s *fakeStore) IsBlocked(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blocked[id]
	return ok, nil
}

func (s *fakeStore) Block(_ context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[id] = reason
	return nil
}

func (s *fakeStore) Unblock(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocked, id)
	return nil
}

func (s *fakeStore) Add(_ context.Context, name, date, timeStr, location string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("event")
	s.events[id] = model.Event{
		ID: id, Name: name, Date: date, Time: timeStr, Location: location,
		Active: true, CreatedAt: time.Now(),
	}
	return id, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &e, nil
}

func (s *fakeStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return errors.New("not found")
	}
	e.Active = false
	s.events[id] = e
	return nil
}

func (s *fakeStore) ListUpcoming(_ context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now()
	var events []model.Event
	for _, e := range s.events {
		if e.IsUpcoming(today) {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func (s *fakeStore) Register(_ context.Context, userID int64, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.regs[eventID] {
		if id == userID {
			return false, nil
		}
	}
	s.regs[eventID] = append(s.regs[eventID], userID)
	return true, nil
}

func (s *fakeStore) Unregister(_ context.Context, userID int64, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.regs[eventID]
	for i, id := range ids {
		if id == userID {
			s.regs[eventID] = append(ids[:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ListRegistrants(_ context.Context, eventID string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.regs[eventID]...), nil
}

func (s *fakeStore) ListForUser(_ context.Context, userID int64) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now()
	var events []model.Event
	for eventID, ids := range s.regs {
		for _, id := range ids {
			if id != userID {
				continue
			}
			if e, ok := s.events[eventID]; ok && e.IsUpcoming(today) {
				events = append(events, e)
			}
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func (s *fakeStore) AddTicket(_ context.Context, eventID string, sellerID int64, description string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("ticket")
	s.tickets[id] = model.Ticket{
		ID: id, EventID: eventID, SellerID: sellerID,
		Description: description, PostedAt: time.Now(),
	}
	return id, nil
}

func (s *fakeStore) GetTicket(_ context.Context, id string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &t, nil
}

func (s *fakeStore) SoftDeleteTicket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return errors.New("not found")
	}
	now := time.Now()
	t.DeletedAt = &now
	s.tickets[id] = t
	return nil
}

func (s *fakeStore) ListActiveForEvent(_ context.Context, eventID string) ([]model.TicketWithSeller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TicketWithSeller
	for _, t := range s.tickets {
		if t.EventID != eventID || !t.IsActive() {
			continue
		}
		u := s.users[t.SellerID]
		out = append(out, model.TicketWithSeller{
			Ticket: t, SellerUsername: u.Username, SellerFirstName: u.FirstName,
		})
	}
	return out, nil
}

func (s *fakeStore) ListActiveForSeller(_ context.Context, sellerID int64) ([]model.TicketWithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TicketWithEvent
	for _, t := range s.tickets {
		if t.SellerID != sellerID || !t.IsActive() {
			continue
		}
		out = append(out, model.TicketWithEvent{Ticket: t, EventName: s.events[t.EventID].Name})
	}
	return out, nil
}

// ticketStoreAdapter maps the TicketStore method names onto fakeStore, whose
// Add/Get/SoftDelete names are taken by the event methods.
type ticketStoreAdapter struct{ *fakeStore }

func (a ticketStoreAdapter) Add(ctx context.Context, eventID string, sellerID int64, description string) (string, error) {
	return a.AddTicket(ctx, eventID, sellerID, description)
}

func (a ticketStoreAdapter) Get(ctx context.Context, id string) (*model.Ticket, error) {
	return a.GetTicket(ctx, id)
}

func (a ticketStoreAdapter) SoftDelete(ctx context.Context, id string) error {
	return a.SoftDeleteTicket(ctx, id)
}

// fakeSender records outbound messages; fail lets a test inject
// per-recipient delivery errors.
type fakeSender struct {
	mu   sync.Mutex
	sent []model.Outgoing
	fail func(msg model.Outgoing) error
}

func (s *fakeSender) Send(_ context.Context, msg model.Outgoing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(msg); err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

// last returns the most recent message, failing loudly on none.
func (s *fakeSender) last() model.Outgoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		panic("no messages sent")
	}
	return s.sent[len(s.sent)-1]
}

// sentTo returns all messages delivered to one recipient.
func (s *fakeSender) sentTo(id int64) []model.Outgoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Outgoing
	for _, m := range s.sent {
		if m.RecipientID == id {
			out = append(out, m)
		}
	}
	return out
}

// countContaining counts recipient's messages containing substr.
func (s *fakeSender) countContaining(id int64, substr string) int {
	count := 0
	for _, m := range s.sentTo(id) {
		if strings.Contains(m.Text, substr) {
			count++
		}
	}
	return count
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBot wires a Bot with in-memory fakes and a real fan-out engine.
func newTestBot(adminIDs ...int64) (*Bot, *fakeStore, *fakeSender) {
	store := newFakeStore()
	sender := &fakeSender{}
	log := discardLogger()
	g := guard.New(adminIDs, store)
	notifier := notify.New(log, sender, store)
	b := New(log, store, store, store, ticketStoreAdapter{store}, g, notifier, sender)
	return b, store, sender
}
