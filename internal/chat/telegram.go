package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
)

// Telegram sends messages through the Bot API.
type Telegram struct {
	bot *tgbotapi.BotAPI
	now func() time.Time
}

// NewTelegram authenticates token against the Bot API.  timeout bounds
// every HTTP call the client makes.
func NewTelegram(token string, timeout time.Duration) (*Telegram, error) {
	client := &http.Client{Timeout: timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	log.Printf("telegram: authorized as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, now: time.Now}, nil
}

// Send implements Sender.  The Bot API client is synchronous, so ctx is
// honoured by abandoning the call; the HTTP timeout ends it.
func (t *Telegram) Send(ctx context.Context, msg conversation.Message) error {
	cfg := buildMessageConfig(msg, t.now())
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(cfg)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			var apiErr *tgbotapi.Error
			if errors.As(err, &apiErr) {
				return fmt.Errorf("%w: chat %d: telegram %d %s", ErrDelivery, msg.ChatID, apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("%w: chat %d: %v", ErrDelivery, msg.ChatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: chat %d: %v", ErrDelivery, msg.ChatID, ctx.Err())
	}
}

// AnswerCallback stops the client's loading spinner on an inline button.
func (t *Telegram) AnswerCallback(id string) {
	if id == "" {
		return
	}
	if _, err := t.bot.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("telegram: answer callback failed: %v", err)
	}
}

// HandleUpdate answers callback queries and forwards the translated event.
func (t *Telegram) HandleUpdate(ctx context.Context, u tgbotapi.Update, sub Submitter) error {
	if u.CallbackQuery != nil {
		t.AnswerCallback(u.CallbackQuery.ID)
	}
	in, ok := Translate(u)
	if !ok {
		return nil
	}
	return sub.Submit(ctx, in)
}

// Poll long-polls getUpdates until ctx is done.
func (t *Telegram) Poll(ctx context.Context, sub Submitter) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.bot.GetUpdatesChan(cfg)
	log.Printf("telegram: polling for updates")
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			log.Printf("telegram: polling stopped")
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := t.HandleUpdate(ctx, u, sub); err != nil {
				log.Printf("telegram: update %d dropped: %v", u.UpdateID, err)
			}
		}
	}
}
