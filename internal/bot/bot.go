// Package bot implements the per-user conversation state machine: command
// routing, the multi-step flows, and the points where flows hand off to the
// notification fan-out.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tickalert/tickalert/internal/guard"
	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
	"github.com/tickalert/tickalert/internal/notify"
)

// Update is one inbound transport event: a command, a free-text reply, or a
// button press. Callback is empty for plain text.
type Update struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Text      string `json:"text,omitempty"`
	Callback  string `json:"callback,omitempty"`
	// MessageID identifies the message a button press came from, so the
	// reply can edit it in place.
	MessageID string `json:"message_id,omitempty"`
}

// Sender delivers one outbound message to a recipient.
type Sender interface {
	Send(ctx context.Context, msg model.Outgoing) error
}

// Broadcaster fans one alert out to a registrant set.
type Broadcaster interface {
	Broadcast(ctx context.Context, recipients []int64, exclude int64, text string) []notify.Result
}

// UserStore persists users.
type UserStore interface {
	Upsert(ctx context.Context, telegramID int64, username, firstName string) error
	Block(ctx context.Context, telegramID int64, reason string) error
	Unblock(ctx context.Context, telegramID int64) error
}

// EventStore persists events.
type EventStore interface {
	Add(ctx context.Context, name, date, timeStr, location string) (string, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	SoftDelete(ctx context.Context, id string) error
	ListUpcoming(ctx context.Context) ([]model.Event, error)
}

// RegistrationStore persists event subscriptions.
type RegistrationStore interface {
	Register(ctx context.Context, telegramID int64, eventID string) (bool, error)
	Unregister(ctx context.Context, telegramID int64, eventID string) (bool, error)
	ListRegistrants(ctx context.Context, eventID string) ([]int64, error)
	ListForUser(ctx context.Context, telegramID int64) ([]model.Event, error)
}

// TicketStore persists tickets.
type TicketStore interface {
	Add(ctx context.Context, eventID string, sellerID int64, description string) (string, error)
	Get(ctx context.Context, id string) (*model.Ticket, error)
	SoftDelete(ctx context.Context, id string) error
	ListActiveForEvent(ctx context.Context, eventID string) ([]model.TicketWithSeller, error)
	ListActiveForSeller(ctx context.Context, sellerID int64) ([]model.TicketWithEvent, error)
}

// Bot wires the conversation engine to its collaborators.
type Bot struct {
	log      *slog.Logger
	users    UserStore
	events   EventStore
	regs     RegistrationStore
	tickets  TicketStore
	guard    *guard.Guard
	notifier Broadcaster
	sender   Sender
	sessions *SessionStore
}

// New constructs a Bot.
func New(
	log *slog.Logger,
	users UserStore,
	events EventStore,
	regs RegistrationStore,
	tickets TicketStore,
	g *guard.Guard,
	notifier Broadcaster,
	sender Sender,
) *Bot {
	return &Bot{
		log:      log,
		users:    users,
		events:   events,
		regs:     regs,
		tickets:  tickets,
		guard:    g,
		notifier: notifier,
		sessions: NewSessionStore(),
		sender:   sender,
	}
}

const (
	cmdStart       = "/start"
	cmdHelp        = "/help"
	cmdEvents      = "/events"
	cmdMyEvents    = "/myevents"
	cmdMyTickets   = "/mytickets"
	cmdSell        = "/sell"
	cmdCancel      = "/cancel"
	cmdAdmin       = "/admin"
	cmdAddEvent    = "/addevent"
	cmdRemoveEvent = "/removeevent"
	cmdBlockUser   = "/blockuser"
	cmdUnblockUser = "/unblockuser"
)

// Menu button captions double as text commands.
const (
	btnEvents    = "🎫 Available events"
	btnMyEvents  = "📋 My events"
	btnSell      = "💰 Sell a ticket"
	btnMyTickets = "🎟 My tickets"
	btnHelp      = "❓ Help"
	btnCancel    = "❌ Cancel"
	btnAdminMenu = "🔧 Admin menu"
)

const msgBlocked = "⛔ You are blocked and cannot use this bot."

// HandleUpdate processes one inbound event for one user. Updates for the
// same user are handled strictly one at a time; different users interleave
// freely.
func (b *Bot) HandleUpdate(ctx context.Context, up Update) error {
	lock := b.sessions.userLock(up.UserID)
	lock.Lock()
	defer lock.Unlock()

	if up.Callback != "" {
		return b.handleCallback(ctx, up)
	}
	return b.handleText(ctx, up)
}

func (b *Bot) handleText(ctx context.Context, up Update) error {
	text := strings.TrimSpace(up.Text)

	// Cancel is matched before anything else so the literal cancel keyword
	// can never be swallowed as flow input (e.g. as an event name).
	if text == cmdCancel || text == btnCancel {
		return b.cancel(ctx, up)
	}

	switch text {
	case cmdStart:
		return b.start(ctx, up)
	case cmdHelp, btnHelp:
		return b.help(ctx, up)
	case cmdEvents, btnEvents:
		return b.listEvents(ctx, up)
	case cmdMyEvents, btnMyEvents:
		return b.myEvents(ctx, up)
	case cmdMyTickets, btnMyTickets:
		return b.myTickets(ctx, up)
	case cmdSell, btnSell:
		return b.sellStart(ctx, up)
	case cmdAdmin, btnAdminMenu:
		return b.adminMenu(ctx, up)
	case cmdAddEvent:
		return b.addEventStart(ctx, up)
	case cmdRemoveEvent:
		return b.removeEventStart(ctx, up)
	case cmdBlockUser:
		return b.blockStart(ctx, up)
	case cmdUnblockUser:
		return b.unblockStart(ctx, up)
	}

	if sess := b.sessions.Get(up.UserID); sess != nil {
		return b.handleFlowText(ctx, up, sess, text)
	}

	// Free text outside any flow is ignored, matching the transport's
	// behavior for unrecognized commands.
	b.log.Debug("unhandled text", slog.Int64("user", up.UserID))
	return nil
}

// handleFlowText feeds text into the user's active flow step.
func (b *Bot) handleFlowText(ctx context.Context, up Update, sess *Session, text string) error {
	switch sess.Step {
	case StepSellSection, StepSellQuantity, StepSellPrice, StepSellPhone:
		return b.sellInput(ctx, up, sess, text)
	case StepAddEventName, StepAddEventDate, StepAddEventTime, StepAddEventLocation:
		return b.addEventInput(ctx, up, sess, text)
	case StepBlockEnterID:
		return b.blockInput(ctx, up, text)
	case StepUnblockEnterID:
		return b.unblockInput(ctx, up, text)
	case StepSellSelectEvent, StepRemoveEventSelect:
		// These steps take a button press, not text.
		return b.send(ctx, up.UserID, "Please use the buttons above, or ❌ Cancel.")
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, up Update) error {
	data := up.Callback

	switch {
	case data == "admin_addevent":
		return b.adminAddEventCallback(ctx, up)
	case data == "admin_removeevent":
		return b.adminRemoveEventCallback(ctx, up)
	case data == "admin_block":
		return b.adminBlockCallback(ctx, up)
	case data == "admin_unblock":
		return b.adminUnblockCallback(ctx, up)
	case strings.HasPrefix(data, "event_"):
		return b.eventSelected(ctx, up, strings.TrimPrefix(data, "event_"))
	case strings.HasPrefix(data, "reg_"):
		return b.registerCallback(ctx, up, strings.TrimPrefix(data, "reg_"))
	case strings.HasPrefix(data, "unreg_"):
		return b.unregisterCallback(ctx, up, strings.TrimPrefix(data, "unreg_"))
	case strings.HasPrefix(data, "viewtickets_"):
		return b.viewTickets(ctx, up, strings.TrimPrefix(data, "viewtickets_"))
	case strings.HasPrefix(data, "sell_"):
		return b.sellEventSelected(ctx, up, strings.TrimPrefix(data, "sell_"))
	case strings.HasPrefix(data, "rmev_"):
		return b.removeEventSelected(ctx, up, strings.TrimPrefix(data, "rmev_"))
	case strings.HasPrefix(data, "delticket_"):
		return b.deleteTicket(ctx, up, strings.TrimPrefix(data, "delticket_"))
	}

	b.log.Warn("unknown callback", slog.Int64("user", up.UserID), slog.String("data", data))
	return nil
}

// cancel aborts whatever flow is active and restores the default menu.
func (b *Bot) cancel(ctx context.Context, up Update) error {
	b.sessions.Clear(up.UserID)
	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        "❌ Action canceled. Back to the main menu.",
		Buttons:     b.mainMenu(up.UserID),
	})
}

// mainMenu is the default reply keyboard; admins get the admin menu button.
func (b *Bot) mainMenu(userID int64) [][]model.Button {
	rows := [][]model.Button{
		{{Text: btnEvents, Data: cmdEvents}, {Text: btnMyEvents, Data: cmdMyEvents}},
		{{Text: btnSell, Data: cmdSell}, {Text: btnMyTickets, Data: cmdMyTickets}},
	}
	bottom := []model.Button{{Text: btnCancel, Data: cmdCancel}, {Text: btnHelp, Data: cmdHelp}}
	if b.guard.IsAdmin(userID) {
		bottom = append(bottom, model.Button{Text: btnAdminMenu, Data: cmdAdmin})
	}
	return append(rows, bottom)
}

// ensureUser records/refreshes the user row. Failures are logged, not
// surfaced: upsert bookkeeping must never break a conversation.
func (b *Bot) ensureUser(ctx context.Context, up Update) {
	if err := b.users.Upsert(ctx, up.UserID, up.Username, up.FirstName); err != nil {
		b.log.Error("failed to upsert user", slog.Int64("user", up.UserID), sl.Err(err))
	}
}

// denyIfBlocked sends the block notice and reports whether the update should
// stop here. A guard read failure fails closed.
func (b *Bot) denyIfBlocked(ctx context.Context, up Update) (bool, error) {
	blocked, err := b.guard.IsBlocked(ctx, up.UserID)
	if err != nil {
		b.log.Error("block check failed", slog.Int64("user", up.UserID), sl.Err(err))
		return true, b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if blocked {
		return true, b.send(ctx, up.UserID, msgBlocked)
	}
	return false, nil
}

func (b *Bot) send(ctx context.Context, userID int64, text string) error {
	return b.sender.Send(ctx, model.Outgoing{RecipientID: userID, Text: text})
}

// edit rewrites the message a button press came from, falling back to a new
// message when the transport didn't tell us which message that was.
func (b *Bot) edit(ctx context.Context, up Update, text string, buttons [][]model.Button) error {
	return b.sender.Send(ctx, model.Outgoing{
		RecipientID:   up.UserID,
		Text:          text,
		Buttons:       buttons,
		EditMessageID: up.MessageID,
	})
}
