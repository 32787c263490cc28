// Package session keeps one conversation session per chat user.
package session

import (
	"time"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
)

// Step is the dialogue state of a session.
type Step string

const (
	StepAwaitingLanguage     Step = "awaiting_language"
	StepAwaitingContact      Step = "awaiting_contact"
	StepAwaitingZone         Step = "awaiting_zone"
	StepAwaitingTable        Step = "awaiting_table"
	StepAwaitingDate         Step = "awaiting_date"
	StepAwaitingTime         Step = "awaiting_time"
	StepAwaitingConfirmation Step = "awaiting_confirmation"
	StepCompleted            Step = "completed"
)

// Session is the per-user conversation state.  Booking fields are filled
// in step order; ZoneKey always accompanies Zone.
type Session struct {
	UserID    int64            `json:"user_id"`
	Username  string           `json:"username,omitempty"`
	Language  catalog.Language `json:"language,omitempty"`
	Step      Step             `json:"step"`
	Phone     string           `json:"phone,omitempty"`
	Zone      string           `json:"zone,omitempty"`
	ZoneKey   string           `json:"zone_key,omitempty"`
	Table     string           `json:"table,omitempty"`
	Date      string           `json:"date,omitempty"`
	Time      string           `json:"time,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// New returns the empty session a user gets on first contact.
func New(userID int64) Session {
	return Session{UserID: userID, Step: StepAwaitingLanguage}
}

// Lang is the session language, defaulting when none was chosen.
func (s Session) Lang() catalog.Language {
	return s.Language.OrDefault()
}

// ClearBooking empties every booking field, phone included.
func (s *Session) ClearBooking() {
	s.Phone = ""
	s.Zone = ""
	s.ZoneKey = ""
	s.Table = ""
	s.Date = ""
	s.Time = ""
}

// MissingFields lists the required booking fields that are still empty.
func (s Session) MissingFields() []string {
	var missing []string
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	if s.Zone == "" {
		missing = append(missing, "zone")
	}
	if s.Table == "" {
		missing = append(missing, "table")
	}
	if s.Date == "" {
		missing = append(missing, "date")
	}
	if s.Time == "" {
		missing = append(missing, "time")
	}
	return missing
}
