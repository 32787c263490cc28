// Package queue defines message payloads exchanged over the message broker.
package queue

import (
    "time"

    "github.com/iliyamo/wave-plaza-bot/internal/model"
)

// DefaultStatusQueue is the durable queue carrying reservation status
// changes from the admin API to the bot.
const DefaultStatusQueue = "reservation.status"

// ReservationStatusChangedEvent is published when an administrator moves a
// reservation out of pending.  It carries the owning chat user so the
// consumer can notify them without querying the database.
type ReservationStatusChangedEvent struct {
    ReservationID uint64 `json:"reservation_id"`
    UserID        int64  `json:"user_id"`
    Status        string `json:"status"`
    ChangedAt     string `json:"changed_at"`
}

// NewStatusChangedEvent builds the event for r as it is now.
func NewStatusChangedEvent(r model.Reservation, at time.Time) ReservationStatusChangedEvent {
    return ReservationStatusChangedEvent{
        ReservationID: r.ID,
        UserID:        r.UserID,
        Status:        string(r.Status),
        ChangedAt:     at.UTC().Format(time.RFC3339),
    }
}
