package chat

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
)

// Translate turns a Telegram update into an inbound event.  It returns
// false for updates the bot does not react to: edits, channel posts,
// group chatter and calendar labels.
func Translate(u tgbotapi.Update) (Inbound, bool) {
	if cq := u.CallbackQuery; cq != nil {
		return translateCallback(cq)
	}
	m := u.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return Inbound{}, false
	}
	in := Inbound{UserID: m.From.ID, Username: m.From.UserName, ChatID: m.Chat.ID}
	switch {
	case m.IsCommand() && m.Command() == "start":
		hint, _ := catalog.ParseLanguage(m.From.LanguageCode)
		in.Event = conversation.StartRequested{ChatID: m.Chat.ID, Private: m.Chat.IsPrivate(), LanguageHint: hint}
	case !m.Chat.IsPrivate():
		// Only /start is answered outside private chats.
		return Inbound{}, false
	case m.Contact != nil:
		in.Event = conversation.ContactShared{Phone: m.Contact.PhoneNumber}
	case m.Text != "" && !m.IsCommand():
		in.Event = conversation.TextEntered{Text: strings.TrimSpace(m.Text)}
	default:
		return Inbound{}, false
	}
	return in, true
}

func translateCallback(cq *tgbotapi.CallbackQuery) (Inbound, bool) {
	if cq.From == nil {
		return Inbound{}, false
	}
	in := Inbound{UserID: cq.From.ID, Username: cq.From.UserName, ChatID: cq.From.ID}
	if cq.Message != nil && cq.Message.Chat != nil {
		in.ChatID = cq.Message.Chat.ID
	}
	data := cq.Data
	switch {
	case strings.HasPrefix(data, conversation.TableCallbackPrefix):
		in.Event = conversation.TableSelected{TableID: strings.TrimPrefix(data, conversation.TableCallbackPrefix)}
	case strings.HasPrefix(data, conversation.DateCallbackPrefix):
		in.Event = conversation.DateSelected{Date: strings.TrimPrefix(data, conversation.DateCallbackPrefix)}
	case data == conversation.ActionConfirm, data == conversation.ActionCancel, data == conversation.ActionReserveAgain:
		in.Event = conversation.ActionInvoked{Name: data}
	default:
		return Inbound{}, false
	}
	return in, true
}
