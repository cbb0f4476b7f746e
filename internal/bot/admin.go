package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
)

const msgNotAdmin = "⛔ You don't have admin permissions."

// skipLocation recognizes the location prompt's "no location" sentinel.
func skipLocation(text string) bool {
	return strings.EqualFold(text, "skip") || text == "-"
}

// denyIfNotAdmin sends the denial and reports whether the update should
// stop here. Admin membership is a pure check, no I/O.
func (b *Bot) denyIfNotAdmin(ctx context.Context, up Update) (bool, error) {
	if b.guard.IsAdmin(up.UserID) {
		return false, nil
	}
	return true, b.send(ctx, up.UserID, msgNotAdmin)
}

func (b *Bot) adminMenu(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        "🔧 Admin menu:",
		Buttons: [][]model.Button{
			{{Text: "➕ Add event", Data: "admin_addevent"}},
			{{Text: "🗑 Remove event", Data: "admin_removeevent"}},
			{{Text: "🚫 Block user", Data: "admin_block"}},
			{{Text: "🔓 Unblock user", Data: "admin_unblock"}},
		},
	})
}

// --- Add event ---

const msgAddEventName = "📝 Enter the event name:\n\nOr tap ❌ Cancel."

func (b *Bot) addEventStart(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowAddEvent, StepAddEventName))
	return b.send(ctx, up.UserID, msgAddEventName)
}

func (b *Bot) adminAddEventCallback(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowAddEvent, StepAddEventName))
	return b.edit(ctx, up, msgAddEventName, nil)
}

// addEventInput advances the add-event flow. Name, date and time are free
// text accepted verbatim; the location step recognizes a skip sentinel.
func (b *Bot) addEventInput(ctx context.Context, up Update, sess *Session, text string) error {
	switch sess.Step {
	case StepAddEventName:
		sess.Data["name"] = text
		sess.Step = StepAddEventDate
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "🗓 Enter the event date (e.g. 2026-03-15):")

	case StepAddEventDate:
		sess.Data["date"] = text
		sess.Step = StepAddEventTime
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "🕐 Enter the time (e.g. 20:00):")

	case StepAddEventTime:
		sess.Data["time"] = text
		sess.Step = StepAddEventLocation
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "📍 Enter the location (or send 'skip'):")

	case StepAddEventLocation:
		location := text
		if skipLocation(text) {
			location = ""
		}
		return b.createEvent(ctx, up, sess, location)
	}
	return nil
}

func (b *Bot) createEvent(ctx context.Context, up Update, sess *Session, location string) error {
	name := sess.Data["name"]
	date := sess.Data["date"]
	timeStr := sess.Data["time"]

	eventID, err := b.events.Add(ctx, name, date, timeStr, location)
	if err != nil {
		b.log.Error("failed to add event", sl.Err(err))
		b.sessions.Clear(up.UserID)
		return b.send(ctx, up.UserID, "Something went wrong, the event was not created.")
	}

	b.sessions.Clear(up.UserID)
	return b.send(ctx, up.UserID, fmt.Sprintf(
		"✅ Event created!\n\n📅 %s\n🗓 %s\n🕐 %s\n📍 %s\n🆔 %s",
		name, date, timeStr, orUnspecified(location), eventID,
	))
}

// --- Remove event ---

func (b *Bot) removeEventStart(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	return b.promptRemoveEvent(ctx, up, false)
}

func (b *Bot) adminRemoveEventCallback(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	return b.promptRemoveEvent(ctx, up, true)
}

func (b *Bot) promptRemoveEvent(ctx context.Context, up Update, edit bool) error {
	events, err := b.events.ListUpcoming(ctx)
	if err != nil {
		b.log.Error("failed to list events", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if len(events) == 0 {
		if edit {
			return b.edit(ctx, up, "No active events.", nil)
		}
		return b.send(ctx, up.UserID, "No active events.")
	}

	b.sessions.Set(up.UserID, newSession(FlowRemoveEvent, StepRemoveEventSelect))
	msg := model.Outgoing{
		RecipientID: up.UserID,
		Text:        "🗑 Pick the event to remove:",
		Buttons:     eventButtons(events, "rmev_"),
	}
	if edit {
		msg.EditMessageID = up.MessageID
	}
	return b.sender.Send(ctx, msg)
}

func (b *Bot) removeEventSelected(ctx context.Context, up Update, eventID string) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	sess := b.sessions.Get(up.UserID)
	if sess == nil || sess.Step != StepRemoveEventSelect {
		return b.edit(ctx, up, "This action has expired. Start again from the admin menu.", nil)
	}

	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		b.sessions.Clear(up.UserID)
		return b.edit(ctx, up, "Event not found.", nil)
	}
	if err := b.events.SoftDelete(ctx, eventID); err != nil {
		b.log.Error("failed to remove event", sl.Err(err))
		b.sessions.Clear(up.UserID)
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}

	b.sessions.Clear(up.UserID)
	return b.edit(ctx, up, fmt.Sprintf("✅ Event %s removed.", event.Name), nil)
}

// --- Block / unblock ---

const (
	msgBlockPrompt   = "🚫 Send the numeric id of the user to block:\n\nOr tap ❌ Cancel."
	msgUnblockPrompt = "🔓 Send the numeric id of the user to unblock:\n\nOr tap ❌ Cancel."
	msgBadID         = "❌ Invalid id. Send numbers only."
)

func (b *Bot) blockStart(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowBlock, StepBlockEnterID))
	return b.send(ctx, up.UserID, msgBlockPrompt)
}

func (b *Bot) adminBlockCallback(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowBlock, StepBlockEnterID))
	return b.edit(ctx, up, msgBlockPrompt, nil)
}

func (b *Bot) blockInput(ctx context.Context, up Update, text string) error {
	targetID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		// Re-prompt; state does not advance.
		return b.send(ctx, up.UserID, msgBadID)
	}

	if err := b.users.Block(ctx, targetID, ""); err != nil {
		b.log.Error("failed to block user", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}

	b.sessions.Clear(up.UserID)
	return b.send(ctx, up.UserID, fmt.Sprintf("✅ User %d blocked.", targetID))
}

func (b *Bot) unblockStart(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowUnblock, StepUnblockEnterID))
	return b.send(ctx, up.UserID, msgUnblockPrompt)
}

func (b *Bot) adminUnblockCallback(ctx context.Context, up Update) error {
	if stop, err := b.denyIfNotAdmin(ctx, up); stop {
		return err
	}
	b.sessions.Set(up.UserID, newSession(FlowUnblock, StepUnblockEnterID))
	return b.edit(ctx, up, msgUnblockPrompt, nil)
}

func (b *Bot) unblockInput(ctx context.Context, up Update, text string) error {
	targetID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return b.send(ctx, up.UserID, msgBadID)
	}

	if err := b.users.Unblock(ctx, targetID); err != nil {
		b.log.Error("failed to unblock user", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}

	b.sessions.Clear(up.UserID)
	return b.send(ctx, up.UserID, fmt.Sprintf("✅ User %d unblocked.", targetID))
}
