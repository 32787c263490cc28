package model

import (
    "strconv"
    "strings"
    "time"
)

// ReservationStatus is the approval state of a reservation.  New
// reservations are PENDING; an administrator later moves them to
// APPROVED or CANCELED.  No other transitions exist.
type ReservationStatus string

const (
    StatusPending  ReservationStatus = "pending"
    StatusApproved ReservationStatus = "approved"
    StatusCanceled ReservationStatus = "canceled"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
    switch s {
    case StatusPending, StatusApproved, StatusCanceled:
        return true
    }
    return false
}

// ParseStatus normalises a raw status string.  The second return value
// is false for anything that is not a known status.
func ParseStatus(raw string) (ReservationStatus, bool) {
    s := ReservationStatus(strings.ToLower(strings.TrimSpace(raw)))
    return s, s.Valid()
}

// Reservation records one confirmed table booking made through the bot.
// Zone and Table hold the localized labels the user picked, exactly as
// shown to them in the chat.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – chat user who made the booking.
//  Username  – chat username, if the user has one.
//  Phone     – phone number shared via the contact button.
//  Zone      – zone label (e.g. "VIP зал").
//  Table     – table label within the zone.
//  Date      – booking date, YYYY-MM-DD.
//  Time      – booking time, H:MM or HH:MM.
//  Status    – approval state.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last status change.
type Reservation struct {
    ID        uint64            `json:"id"`
    UserID    int64             `json:"user_id"`
    Username  *string           `json:"username,omitempty"`
    Phone     string            `json:"phone"`
    Zone      string            `json:"zone"`
    Table     string            `json:"table"`
    Date      string            `json:"date"`
    Time      string            `json:"time"`
    Status    ReservationStatus `json:"status"`
    CreatedAt time.Time         `json:"created_at"`
    UpdatedAt time.Time         `json:"updated_at"`
}

// DisplayUsername renders the username for human-facing summaries.
func (r Reservation) DisplayUsername() string {
    if r.Username == nil || *r.Username == "" {
        return "—"
    }
    return "@" + *r.Username
}

// UserIDString is the user id formatted for message templates.
func (r Reservation) UserIDString() string {
    return strconv.FormatInt(r.UserID, 10)
}
