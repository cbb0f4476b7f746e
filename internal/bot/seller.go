package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tickalert/tickalert/internal/lib/logger/sl"
	"github.com/tickalert/tickalert/internal/model"
	"github.com/tickalert/tickalert/internal/notify"
)

// phonePattern matches a local mobile number: the 05 prefix followed by
// exactly eight digits. Dashes and spaces are stripped before matching.
var phonePattern = regexp.MustCompile(`^05\d{8}$`)

var phoneSeparators = strings.NewReplacer("-", "", " ", "")

// maxCaptionRunes bounds the event-name part of a delete-button caption.
const maxCaptionRunes = 30

// validPhone reports whether the text is an acceptable contact number.
func validPhone(phone string) bool {
	return phonePattern.MatchString(phoneSeparators.Replace(phone))
}

func (b *Bot) sellStart(ctx context.Context, up Update) error {
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

	// Starting the flow replaces any other flow the user had in progress.
	b.sessions.Set(up.UserID, newSession(FlowSell, StepSellSelectEvent))
	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        "🎫 Sell a ticket\nPick the event:",
		Buttons:     eventButtons(events, "sell_"),
	})
}

func (b *Bot) sellEventSelected(ctx context.Context, up Update, eventID string) error {
	sess := b.sessions.Get(up.UserID)
	if sess == nil || sess.Step != StepSellSelectEvent {
		// Stale button from an abandoned flow.
		return b.edit(ctx, up, "This action has expired. Start again with 💰 Sell a ticket.", nil)
	}

	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		b.sessions.Clear(up.UserID)
		return b.edit(ctx, up, "Event not found.", nil)
	}

	sess.Data["event_id"] = eventID
	sess.Step = StepSellSection
	b.sessions.Set(up.UserID, sess)
	return b.edit(ctx, up, fmt.Sprintf("📅 Event: %s\n\n🏟 Enter the section / stand:", event.Name), nil)
}

// sellInput advances the sell flow one text step at a time. Section,
// quantity and price are accepted verbatim; only the phone is validated.
func (b *Bot) sellInput(ctx context.Context, up Update, sess *Session, text string) error {
	switch sess.Step {
	case StepSellSection:
		sess.Data["section"] = text
		sess.Step = StepSellQuantity
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "🎫 Enter the number of tickets:")

	case StepSellQuantity:
		sess.Data["quantity"] = text
		sess.Step = StepSellPrice
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "💰 Enter the price (face value only):")

	case StepSellPrice:
		sess.Data["price"] = text
		sess.Step = StepSellPhone
		b.sessions.Set(up.UserID, sess)
		return b.send(ctx, up.UserID, "📞 Enter a contact phone number:")

	case StepSellPhone:
		if !validPhone(text) {
			// Same step re-prompts; state does not advance.
			return b.send(ctx, up.UserID,
				"❌ Invalid phone number.\nPlease enter a local mobile number like 050-1234567.")
		}
		return b.publishTicket(ctx, up, sess, text)
	}
	return nil
}

// publishTicket is the sell flow's terminal transition: persist the ticket,
// confirm to the seller, clear the flow, then fan the alert out to every
// registrant except the seller.
func (b *Bot) publishTicket(ctx context.Context, up Update, sess *Session, phone string) error {
	const op = "bot.Bot.publishTicket"
	log := b.log.With(slog.String("op", op))

	eventID := sess.Data["event_id"]
	section := sess.Data["section"]
	quantity := sess.Data["quantity"]
	price := sess.Data["price"]

	event, err := b.events.Get(ctx, eventID)
	if err != nil {
		// Event vanished between selection and publish.
		b.sessions.Clear(up.UserID)
		return b.send(ctx, up.UserID, "The event is no longer available; the ticket was not posted.")
	}

	description := fmt.Sprintf("Section: %s\nQuantity: %s\nPrice: %s\nPhone: %s",
		section, quantity, price, phone)
	ticketID, err := b.tickets.Add(ctx, eventID, up.UserID, description)
	if err != nil {
		log.Error("failed to add ticket", sl.Err(err))
		b.sessions.Clear(up.UserID)
		return b.send(ctx, up.UserID, "Something went wrong, the ticket was not posted.")
	}

	registrants, err := b.regs.ListRegistrants(ctx, eventID)
	if err != nil {
		// The ticket is persisted; the alert is best-effort.
		log.Error("failed to list registrants", sl.Err(err))
		registrants = nil
	}

	confirmation := fmt.Sprintf(
		"✅ Ticket posted!\n\n📅 %s\n🏟 Section: %s\n🎫 Quantity: %s\n💰 Price: %s\n📞 Phone: %s\n\n"+
			"Subscribers are being notified now.\nFound a buyer? Tap the button below to delete the ticket.",
		event.Name, section, quantity, price, phone,
	)
	if err := b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        confirmation,
		Buttons: [][]model.Button{
			{{Text: "🗑 Delete ticket (found a buyer)", Data: "delticket_" + ticketID}},
		},
	}); err != nil {
		log.Error("failed to confirm to seller", sl.Err(err))
	}

	b.sessions.Clear(up.UserID)

	seller := model.User{TelegramID: up.UserID, Username: up.Username, FirstName: up.FirstName}
	alert := fmt.Sprintf(
		"🚨 New ticket available!\n\n📅 Event: %s\n🗓 Date: %s\n🕐 Time: %s\n"+
			"🏟 Section: %s\n🎫 Quantity: %s\n💰 Price: %s\n📞 Phone: %s\n\n"+
			"👤 Seller: %s\n\nContact the seller directly!",
		event.Name, event.Date, orUnspecified(event.Time),
		section, quantity, price, phone, seller.DisplayHandle(),
	)
	results := b.notifier.Broadcast(ctx, registrants, up.UserID, alert)
	log.Info("ticket alert sent",
		slog.String("ticket", ticketID),
		slog.String("event", event.Name),
		slog.Int("delivered", notify.SuccessCount(results)))
	return nil
}

func (b *Bot) deleteTicket(ctx context.Context, up Update, ticketID string) error {
	const op = "bot.Bot.deleteTicket"
	log := b.log.With(slog.String("op", op))

	ticket, err := b.tickets.Get(ctx, ticketID)
	if err != nil || !ticket.IsActive() {
		return b.edit(ctx, up, "This ticket is already deleted.", nil)
	}
	if ticket.SellerID != up.UserID {
		return b.send(ctx, up.UserID, "Only the seller can delete this ticket.")
	}

	event, err := b.events.Get(ctx, ticket.EventID)
	if err != nil {
		log.Error("failed to load ticket event", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	registrants, err := b.regs.ListRegistrants(ctx, ticket.EventID)
	if err != nil {
		log.Error("failed to list registrants", sl.Err(err))
		registrants = nil
	}

	if err := b.tickets.SoftDelete(ctx, ticketID); err != nil {
		log.Error("failed to delete ticket", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if err := b.edit(ctx, up, "✅ Ticket deleted.", nil); err != nil {
		log.Error("failed to confirm deletion", sl.Err(err))
	}

	seller := model.User{TelegramID: up.UserID, Username: up.Username, FirstName: up.FirstName}
	notice := fmt.Sprintf(
		"📢 Ticket sold\n\n📅 Event: %s\n👤 Seller: %s\n\nThe ticket is no longer available.",
		event.Name, seller.DisplayHandle(),
	)
	results := b.notifier.Broadcast(ctx, registrants, up.UserID, notice)
	log.Info("ticket withdrawn notice sent",
		slog.String("ticket", ticketID),
		slog.Int("delivered", notify.SuccessCount(results)))
	return nil
}

func (b *Bot) myTickets(ctx context.Context, up Update) error {
	if stop, err := b.denyIfBlocked(ctx, up); stop {
		return err
	}
	b.ensureUser(ctx, up)

	tickets, err := b.tickets.ListActiveForSeller(ctx, up.UserID)
	if err != nil {
		b.log.Error("failed to list seller tickets", sl.Err(err))
		return b.send(ctx, up.UserID, "Something went wrong, please try again.")
	}
	if len(tickets) == 0 {
		return b.send(ctx, up.UserID, "You have no posted tickets right now.")
	}

	lines := []string{"🎟 My tickets:\n"}
	var buttons [][]model.Button
	for _, t := range tickets {
		lines = append(lines, fmt.Sprintf("———————————\n📅 %s\n%s", t.EventName, t.Description))
		caption := t.EventName
		// Truncate on runes so multi-byte names don't get cut mid-character.
		if r := []rune(caption); len(r) > maxCaptionRunes {
			caption = string(r[:maxCaptionRunes])
		}
		buttons = append(buttons, []model.Button{
			{Text: "🗑 Delete — " + caption, Data: "delticket_" + t.ID},
		})
	}
	lines = append(lines, "———————————")

	return b.sender.Send(ctx, model.Outgoing{
		RecipientID: up.UserID,
		Text:        strings.Join(lines, "\n"),
		Buttons:     buttons,
	})
}
