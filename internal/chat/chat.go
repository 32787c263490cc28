// Package chat is the Telegram boundary: it renders outbound messages and
// turns inbound updates into conversation events.
package chat

import (
	"context"
	"errors"

	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
)

// ErrDelivery marks a message the transport could not deliver.
var ErrDelivery = errors.New("message not delivered")

// Sender delivers one outbound message.  Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, msg conversation.Message) error
}

// Inbound is one user action translated from a Telegram update.
type Inbound struct {
	UserID   int64
	Username string
	ChatID   int64
	Event    conversation.Event
}

// Submitter accepts inbound events for processing.
type Submitter interface {
	Submit(ctx context.Context, in Inbound) error
}
