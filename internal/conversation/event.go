package conversation

import (
	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/session"
)

// Action names carried by inline buttons.
const (
	ActionConfirm      = "confirm"
	ActionCancel       = "cancel"
	ActionReserveAgain = "reserve_again"
)

// Callback data prefixes for table and date buttons.
const (
	TableCallbackPrefix = "select_"
	DateCallbackPrefix  = "date:"
)

// Event is one inbound user action.
type Event interface {
	eventName() string
}

// StartRequested is the /start command.  ChatID is where it was sent;
// LanguageHint is the client's language, if recognised.
type StartRequested struct {
	ChatID       int64
	Private      bool
	LanguageHint catalog.Language
}

// LanguageSelected carries the pressed language button label.
type LanguageSelected struct{ Label string }

// ContactShared carries the phone number from a shared contact.
type ContactShared struct{ Phone string }

// ZoneTextSelected carries text sent while a zone is expected.
type ZoneTextSelected struct{ Text string }

// TableSelected carries the table id of a pressed table button.
type TableSelected struct{ TableID string }

// DateSelected carries a YYYY-MM-DD date from the date picker.
type DateSelected struct{ Date string }

// TimeTextEntered carries text sent while a time is expected.
type TimeTextEntered struct{ Text string }

// ActionInvoked carries the name of a pressed action button.
type ActionInvoked struct{ Name string }

// TextEntered is free text whose meaning depends on the session step;
// see Classify.
type TextEntered struct{ Text string }

func (StartRequested) eventName() string   { return "start" }
func (LanguageSelected) eventName() string { return "language_selected" }
func (ContactShared) eventName() string    { return "contact_shared" }
func (ZoneTextSelected) eventName() string { return "zone_text" }
func (TableSelected) eventName() string    { return "table_selected" }
func (DateSelected) eventName() string     { return "date_selected" }
func (TimeTextEntered) eventName() string  { return "time_text" }
func (ActionInvoked) eventName() string    { return "action" }
func (TextEntered) eventName() string      { return "text" }

// Name returns a short event name for logs and spans.
func Name(ev Event) string {
	if ev == nil {
		return "none"
	}
	return ev.eventName()
}

// Classify gives free text its meaning for the current step.  Language
// button labels are recognised in every step.
func Classify(step session.Step, text string) Event {
	if _, ok := catalog.LanguageForLabel(text); ok {
		return LanguageSelected{Label: text}
	}
	switch step {
	case session.StepAwaitingZone:
		return ZoneTextSelected{Text: text}
	case session.StepAwaitingTime:
		return TimeTextEntered{Text: text}
	}
	return TextEntered{Text: text}
}
