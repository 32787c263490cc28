// Package notifier tells users when an administrator approves or cancels
// their reservation.
package notifier

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/chat"
	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
	"github.com/iliyamo/wave-plaza-bot/internal/model"
	"github.com/iliyamo/wave-plaza-bot/internal/session"
)

// statusMessages maps the statuses users hear about to their templates.
var statusMessages = map[model.ReservationStatus]string{
	model.StatusApproved: catalog.MsgStatusApproved,
	model.StatusCanceled: catalog.MsgStatusCanceled,
}

// Notifier turns status changes into chat messages.  It only reads
// sessions, so it never waits on a user's dialogue.
type Notifier struct {
	cat         *catalog.Catalog
	store       session.Store
	sender      chat.Sender
	sendTimeout time.Duration
	tracer      trace.Tracer
}

// New builds a Notifier.
func New(cat *catalog.Catalog, store session.Store, sender chat.Sender, sendTimeout time.Duration) *Notifier {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Notifier{
		cat:         cat,
		store:       store,
		sender:      sender,
		sendTimeout: sendTimeout,
		tracer:      otel.Tracer("github.com/iliyamo/wave-plaza-bot/internal/notifier"),
	}
}

// Handle sends the localized status message to userID.  Statuses other
// than approved and canceled are skipped.  It reports whether a message
// was delivered; failures are logged, never returned.
func (n *Notifier) Handle(ctx context.Context, userID int64, status model.ReservationStatus) bool {
	ctx, span := n.tracer.Start(ctx, "notifier.handle", trace.WithAttributes(
		attribute.Int64("chat.user_id", userID),
		attribute.String("reservation.status", string(status)),
	))
	defer span.End()

	id, ok := statusMessages[status]
	if !ok {
		return false
	}
	lang := session.LanguageOf(ctx, n.store, userID)
	msg := conversation.Message{
		ChatID:   userID,
		Text:     n.cat.Lookup(lang, id, nil),
		Markdown: true,
	}

	sctx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()
	if err := n.sender.Send(sctx, msg); err != nil {
		span.RecordError(err)
		log.Printf("notifier: %s notice to user %d not delivered: %v", status, userID, err)
		return false
	}
	log.Printf("notifier: %s notice sent to user %d (%s)", status, userID, lang)
	return true
}
