package chat

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
)

func TestBuildReplyKeyboard(t *testing.T) {
	msg := conversation.Message{
		ChatID: 7,
		Text:   "share",
		Keyboard: &conversation.Keyboard{
			Kind:    conversation.KeyboardReply,
			Rows:    [][]conversation.Button{{{Label: "📱", RequestContact: true}}, {{Label: "plain"}}},
			OneTime: true,
		},
	}
	cfg := buildMessageConfig(msg, time.Now())
	if cfg.ChatID != 7 || cfg.Text != "share" || cfg.ParseMode != "" {
		t.Fatalf("config = %+v", cfg)
	}
	markup, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("markup = %T", cfg.ReplyMarkup)
	}
	if !markup.OneTimeKeyboard || !markup.Keyboard[0][0].RequestContact || markup.Keyboard[1][0].RequestContact {
		t.Fatalf("markup = %+v", markup)
	}
}

func TestBuildInlineKeyboard(t *testing.T) {
	msg := conversation.Message{
		ChatID:   7,
		Text:     "*bold*",
		Markdown: true,
		Keyboard: &conversation.Keyboard{
			Kind: conversation.KeyboardInline,
			Rows: [][]conversation.Button{{{Label: "OK", Data: conversation.ActionConfirm}}},
		},
	}
	cfg := buildMessageConfig(msg, time.Now())
	if cfg.ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("parse mode = %q", cfg.ParseMode)
	}
	markup, ok := cfg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("markup = %T", cfg.ReplyMarkup)
	}
	b := markup.InlineKeyboard[0][0]
	if b.Text != "OK" || b.CallbackData == nil || *b.CallbackData != conversation.ActionConfirm {
		t.Fatalf("button = %+v", b)
	}
}

func TestDatePickerWindow(t *testing.T) {
	cat := catalog.MustLoad()
	// Friday 2024-05-31; the window runs to Thursday 2024-06-13.
	now := time.Date(2024, 5, 31, 18, 45, 0, 0, time.UTC)
	markup := datePicker(now, cat.Weekdays(catalog.Russian), cat.Months(catalog.Russian))

	title := markup.InlineKeyboard[0][0].Text
	if !strings.Contains(title, "Май") || !strings.Contains(title, "Июнь") {
		t.Fatalf("title = %q", title)
	}
	if markup.InlineKeyboard[1][0].Text != "Пн" {
		t.Fatalf("weekday header = %+v", markup.InlineKeyboard[1])
	}

	var dates []string
	for _, row := range markup.InlineKeyboard[2:] {
		if len(row) != 7 {
			t.Fatalf("calendar row has %d cells", len(row))
		}
		for _, b := range row {
			if b.CallbackData == nil {
				t.Fatal("button without callback data")
			}
			if d := *b.CallbackData; strings.HasPrefix(d, conversation.DateCallbackPrefix) {
				dates = append(dates, strings.TrimPrefix(d, conversation.DateCallbackPrefix))
			}
		}
	}
	if len(dates) != DatePickerDays {
		t.Fatalf("dates = %d, want %d", len(dates), DatePickerDays)
	}
	if dates[0] != "2024-05-31" || dates[len(dates)-1] != "2024-06-13" {
		t.Fatalf("window = %s..%s", dates[0], dates[len(dates)-1])
	}
	// Friday is the fifth cell of the first week.
	if first := markup.InlineKeyboard[2]; *first[4].CallbackData != "date:2024-05-31" || *first[3].CallbackData != ignoreData {
		t.Fatalf("first week = %+v", first)
	}
}

func TestRemoveKeyboard(t *testing.T) {
	cfg := buildMessageConfig(conversation.Message{
		ChatID:   1,
		Text:     "bye",
		Keyboard: &conversation.Keyboard{Kind: conversation.KeyboardRemove},
	}, time.Now())
	if _, ok := cfg.ReplyMarkup.(tgbotapi.ReplyKeyboardRemove); !ok {
		t.Fatalf("markup = %T", cfg.ReplyMarkup)
	}
}
