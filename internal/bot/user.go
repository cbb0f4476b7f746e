package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
)

const maxListedEvents = 5

func (b *Bot) start(ctx context.Context, up Update) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	b.ensureUser(ctx, up)

	name := up.FirstName
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf(
		"🎟 Hi %s, welcome to TickAlert!\n\n"+
			"The bot helps you find and sell tickets for upcoming games.\n"+
			"Subscribe to an event and get an instant alert when a ticket frees up.\n\n"+
			"🎫 Available events — browse upcoming games and subscribe\n"+
			"📋 My events — the games you subscribed to\n"+
			"💰 Sell a ticket — post a spare ticket\n"+
			"🎟 My tickets — manage your posted tickets\n\n"+
			"How it works:\n"+
			"1. Pick an event under Available events\n"+
			"2. Subscribe to alerts\n"+
			"3. When someone posts a ticket, you get a message right here\n\n"+
			"⚠️ Tickets are sold at face value only. Sellers who overcharge get blocked. "+
			"The bot is a middleman and is not a party to the sale.",
		name,
	)
	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        text,
		Buttons:     b.mainMenu(up.UserID),
	})
}

func (b *Bot) help(ctx context.Context, up Update) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	return b.send(ctx, up.UserID,
		"📖 TickAlert help\n\n"+
			"🎫 Available events — browse upcoming games and subscribe to alerts\n"+
			"📋 My events — the games you subscribed to\n"+
			"💰 Sell a ticket — post a spare ticket for sale\n"+
			"🎟 My tickets — your posted tickets, with delete buttons\n"+
			"❌ Cancel — abort the current action\n\n"+
			"Tip: the earlier you subscribe, the sooner you hear about new tickets.")
}

func (b *Bot) listEvents(ctx context.Context, up Update) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	b.ensureUser(ctx, up)

	events, err := b.events.ListUpcoming(ctx)
	if err != nil {
		b.log.Error("failed to list events", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if len(events) == 0 {
		return b.send(ctx, up.UserID, "No events available right now.")
	}
	if len(events) > maxListedEvents {
		events = events[:maxListedEvents]
	}

	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        "🎫 Available events:\nTap an event to subscribe to ticket alerts.",
		Buttons:     eventButtons(events, "event_"),
	})
}

// eventButtons renders one button row per event, with the id under prefix.
func eventButtons(events []model.Event, prefix string) [][]model.Button {
	var rows [][]model.Button
	for _, e := range events {
		rows = append(rows, []model.Button{{Text: e.Label(), Data: prefix + e.ID}})
	}
	return rows
}

func orUnspecified(s string) string {
	if s == "" {
		return "not specified"
	}
	return s
}

func (b *Bot) eventSelected(ctx context.Context, up Update, eventID string) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}

	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		return b.edit(ctx, up, "Event not found.", nil)
	}

	registered, err := b.isRegistered(ctx, up.UserID, eventID)
	if err != nil {
		b.log.Error("failed to read registrations", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}

	var buttons [][]model.Button
	status := "❌ not subscribed"
	if registered {
		status = "✅ subscribed"
		buttons = append(buttons,
			[]model.Button{{Text: "🎫 View available tickets", Data: "viewtickets_" + eventID}},
			[]model.Button{{Text: "❌ Unsubscribe", Data: "unreg_" + eventID}},
		)
	} else {
		buttons = append(buttons,
			[]model.Button{{Text: "✅ Subscribe to alerts", Data: "reg_" + eventID}},
		)
	}

	text := fmt.Sprintf(
		"📅 %s\n🗓 Date: %s\n🕐 Time: %s\n📍 Location: %s\n\nStatus: %s",
		event.Name, event.Date, orUnspecified(event.Time), orUnspecified(event.Location), status,
	)
	return b.edit(ctx, up, text, buttons)
}

func (b *Bot) isRegistered(ctx context.Context, userID int64, eventID string) (bool, error) {
	events, err := b.regs.ListForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.ID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (b *Bot) registerCallback(ctx context.Context, up Update, eventID string) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	b.ensureUser(ctx, up)

	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		return b.edit(ctx, up, "Event not found.", nil)
	}

	registered, err := b.regs.Register(ctx, up.UserID, eventID)
	if err != nil {
		b.log.Error("failed to register", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if !registered {
		return b.edit(ctx, up, "You are already subscribed to this event.", nil)
	}

	text := fmt.Sprintf(
		"✅ Subscribed to ticket alerts!\n\n📅 Event: %s\n🗓 Date: %s\n🕐 Time: %s\n📍 Location: %s",
		event.Name, event.Date, orUnspecified(event.Time), orUnspecified(event.Location),
	)
	return b.edit(ctx, up, text, nil)
}

func (b *Bot) unregisterCallback(ctx context.Context, up Update, eventID string) error {
	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		return b.edit(ctx, up, "Event not found.", nil)
	}

	removed, err := b.regs.Unregister(ctx, up.UserID, eventID)
	if err != nil {
		b.log.Error("failed to unregister", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if !removed {
		return b.edit(ctx, up, "You were not subscribed to this event.", nil)
	}
	return b.edit(ctx, up, fmt.Sprintf("❌ Unsubscribed from %s.", event.Name), nil)
}

func (b *Bot) myEvents(ctx context.Context, up Update) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	b.ensureUser(ctx, up)

	events, err := b.regs.ListForUser(ctx, up.UserID)
	if err != nil {
		b.log.Error("failed to list registrations", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if len(events) == 0 {
		return b.send(ctx, up.UserID,
			"You are not subscribed to any event yet.\nTap 🎫 Available events to subscribe.")
	}

	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        "🎫 My events:\nTap an event to see available tickets.",
		Buttons:     eventButtons(events, "event_"),
	})
}

func (b *Bot) viewTickets(ctx context.Context, up Update, eventID string) error {
	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		return b.edit(ctx, up, "Event not found.", nil)
	}

	tickets, err := b.tickets.ListActiveForEvent(ctx, eventID)
	if err != nil {
		b.log.Error("failed to list tickets", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if len(tickets) == 0 {
		return b.edit(ctx, up,
			fmt.Sprintf("📅 %s\n\nNo tickets available for this event right now.", event.Name), nil)
	}

	lines := []string{fmt.Sprintf("📅 %s — available tickets:\n", event.Name)}
	for _, t := range tickets {
		lines = append(lines, fmt.Sprintf("———————————\n%s\n👤 Seller: %s", t.Description, t.SellerHandle()))
	}
	lines = append(lines, "———————————")
	return b.edit(ctx, up, strings.Join(lines, "\n"), nil)
}
