package chat

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
)

// DatePickerDays is how many days, today included, the date picker offers.
const DatePickerDays = 14

// ignoreData marks inline buttons that only label the calendar.
const ignoreData = "ignore"

// buildMessageConfig renders msg as a Telegram sendMessage request.
func buildMessageConfig(msg conversation.Message, now time.Time) tgbotapi.MessageConfig {
	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Markdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if msg.Keyboard == nil {
		return out
	}
	kb := msg.Keyboard
	switch kb.Kind {
	case conversation.KeyboardReply:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
		for _, r := range kb.Rows {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, b := range r {
				if b.RequestContact {
					row = append(row, tgbotapi.NewKeyboardButtonContact(b.Label))
				} else {
					row = append(row, tgbotapi.NewKeyboardButton(b.Label))
				}
			}
			rows = append(rows, row)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.OneTimeKeyboard = kb.OneTime
		out.ReplyMarkup = markup
	case conversation.KeyboardInline:
		out.ReplyMarkup = inlineMarkup(kb.Rows)
	case conversation.KeyboardDatePicker:
		out.ReplyMarkup = datePicker(now, kb.Weekdays, kb.Months)
	case conversation.KeyboardRemove:
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return out
}

func inlineMarkup(rows [][]conversation.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		out = append(out, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

// datePicker lays out the next DatePickerDays days as a Monday-first
// calendar.  Cells outside the window are blank and carry ignoreData.
func datePicker(now time.Time, weekdays, months []string) tgbotapi.InlineKeyboardMarkup {
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 0, DatePickerDays-1)

	var rows [][]tgbotapi.InlineKeyboardButton
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(pickerTitle(first, last, months), ignoreData),
	))
	if len(weekdays) == 7 {
		header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, w := range weekdays {
			header = append(header, tgbotapi.NewInlineKeyboardButtonData(w, ignoreData))
		}
		rows = append(rows, header)
	}

	// Go counts weekdays from Sunday; the grid starts on Monday.
	offset := (int(first.Weekday()) + 6) % 7
	day := first.AddDate(0, 0, -offset)
	for !day.After(last) {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for i := 0; i < 7; i++ {
			if day.Before(first) || day.After(last) {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(" ", ignoreData))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(
					strconv.Itoa(day.Day()),
					conversation.DateCallbackPrefix+day.Format("2006-01-02"),
				))
			}
			day = day.AddDate(0, 0, 1)
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func pickerTitle(first, last time.Time, months []string) string {
	name := func(t time.Time) string {
		if len(months) == 12 {
			return months[t.Month()-1]
		}
		return t.Month().String()
	}
	if first.Month() == last.Month() {
		return fmt.Sprintf("%s %d", name(first), first.Year())
	}
	if first.Year() == last.Year() {
		return fmt.Sprintf("%s / %s %d", name(first), name(last), last.Year())
	}
	return fmt.Sprintf("%s %d / %s %d", name(first), first.Year(), name(last), last.Year())
}
