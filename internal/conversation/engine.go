// Package conversation implements the reservation dialogue as a pure
// state machine.  Apply never performs I/O: it returns the next session,
// the messages to send and, when a booking is confirmed, a draft the
// caller must hand to the repository before reporting back through
// Created or CreateFailed.
package conversation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/model"
	"github.com/iliyamo/wave-plaza-bot/internal/session"
)

// Result says what kind of outcome Apply produced.
type Result int

const (
	// Transitioned: the session changed and must be saved.
	Transitioned Result = iota
	// Replied: messages go out but the session is unchanged.
	Replied
	// Ignored: nothing happens, no reply.
	Ignored
	// Rejected: a validation error; the user is told, the session is unchanged.
	Rejected
	// NeedsCreate: Draft must be stored, then Created or CreateFailed called.
	NeedsCreate
	// Failed: the repository rejected the draft; the session is unchanged.
	Failed
)

func (r Result) String() string {
	switch r {
	case Transitioned:
		return "transitioned"
	case Replied:
		return "replied"
	case Ignored:
		return "ignored"
	case Rejected:
		return "rejected"
	case NeedsCreate:
		return "needs_create"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the result of one step of the machine.
type Outcome struct {
	Result   Result
	Session  session.Session
	Messages []Message
	Draft    *model.Reservation
	Err      error
}

// Changed reports whether Session must be persisted.
func (o Outcome) Changed() bool { return o.Result == Transitioned }

// timePattern accepts H:MM and HH:MM with hour 0-23 and minute 00-59.
var timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTime reports whether text is an acceptable booking time.
func ValidTime(text string) bool { return timePattern.MatchString(text) }

// Config holds the fixed administrative recipient.
type Config struct {
	AdminChatID   int64
	AdminLanguage catalog.Language
}

// Engine is the dialogue state machine.  It is stateless and safe for
// concurrent use.
type Engine struct {
	cat *catalog.Catalog
	cfg Config
}

// NewEngine builds an Engine over the given catalog.
func NewEngine(cat *catalog.Catalog, cfg Config) *Engine {
	cfg.AdminLanguage = cfg.AdminLanguage.OrDefault()
	return &Engine{cat: cat, cfg: cfg}
}

// Apply computes the outcome of ev for the session s.
func (e *Engine) Apply(s session.Session, ev Event) Outcome {
	if t, ok := ev.(TextEntered); ok {
		ev = Classify(s.Step, t.Text)
	}
	switch ev := ev.(type) {
	case StartRequested:
		return e.start(s, ev)
	case LanguageSelected:
		return e.selectLanguage(s, ev)
	case ContactShared:
		return e.shareContact(s, ev)
	case ZoneTextSelected:
		return e.selectZone(s, ev)
	case TableSelected:
		return e.selectTable(s, ev)
	case DateSelected:
		return e.selectDate(s, ev)
	case TimeTextEntered:
		return e.enterTime(s, ev)
	case ActionInvoked:
		return e.invoke(s, ev)
	}
	return ignore(s)
}

// Created finishes a confirmation after the repository stored r.
func (e *Engine) Created(s session.Session, r model.Reservation) Outcome {
	lang := s.Lang()
	s.Step = session.StepCompleted
	summary := e.cat.Lookup(e.cfg.AdminLanguage, catalog.MsgAdminSummary, map[string]string{
		"username": r.DisplayUsername(),
		"user_id":  r.UserIDString(),
		"phone":    r.Phone,
		"zone":     r.Zone,
		"table":    r.Table,
		"date":     r.Date,
		"time":     r.Time,
	})
	return Outcome{
		Result:  Transitioned,
		Session: s,
		Messages: []Message{
			{ChatID: e.cfg.AdminChatID, Text: summary},
			{
				ChatID: s.UserID,
				Text:   e.cat.Lookup(lang, catalog.MsgFinalConfirmation, nil),
				Keyboard: inline([]Button{{
					Label: e.cat.Lookup(lang, catalog.MsgReserveAgain, nil),
					Data:  ActionReserveAgain,
				}}),
			},
		},
	}
}

// CreateFailed reports a repository failure to the user.  The session
// stays at confirmation so pressing confirm again retries.
func (e *Engine) CreateFailed(s session.Session, err error) Outcome {
	return Outcome{
		Result:   Failed,
		Session:  s,
		Messages: []Message{e.errorMessage(s)},
		Err:      fmt.Errorf("%w: %v", ErrCreateFailed, err),
	}
}

func (e *Engine) start(s session.Session, ev StartRequested) Outcome {
	if !ev.Private {
		chatID := ev.ChatID
		if chatID == 0 {
			chatID = s.UserID
		}
		return Outcome{
			Result:   Replied,
			Session:  s,
			Messages: []Message{{ChatID: chatID, Text: catalog.PrivateOnly}},
		}
	}
	hint := ev.LanguageHint
	if s.Language.Valid() {
		hint = s.Language
	}
	s.ClearBooking()
	s.Step = session.StepAwaitingLanguage
	labels := catalog.LanguageLabels(hint)
	row := make([]Button, 0, len(labels))
	for _, l := range labels {
		row = append(row, Button{Label: l})
	}
	return Outcome{
		Result:  Transitioned,
		Session: s,
		Messages: []Message{{
			ChatID:   s.UserID,
			Text:     catalog.LanguagePrompt,
			Keyboard: &Keyboard{Kind: KeyboardReply, Rows: [][]Button{row}, OneTime: true},
		}},
	}
}

func (e *Engine) selectLanguage(s session.Session, ev LanguageSelected) Outcome {
	lang, ok := catalog.LanguageForLabel(ev.Label)
	if !ok {
		return ignore(s)
	}
	s.Language = lang
	s.ClearBooking()
	s.Step = session.StepAwaitingContact
	return transition(s, e.contactPrompt(s))
}

func (e *Engine) shareContact(s session.Session, ev ContactShared) Outcome {
	phone := strings.TrimSpace(ev.Phone)
	if phone == "" {
		return ignore(s)
	}
	lang := s.Lang()
	switch s.Step {
	case session.StepAwaitingContact:
		s.Phone = phone
		s.Step = session.StepAwaitingZone
		return transition(s,
			Message{ChatID: s.UserID, Text: e.cat.Lookup(lang, catalog.MsgThankYou, map[string]string{"phone": phone})},
			e.zonePrompt(s),
		)
	case session.StepAwaitingZone, session.StepAwaitingTable, session.StepAwaitingDate,
		session.StepAwaitingTime, session.StepAwaitingConfirmation:
		s.Phone = phone
		return transition(s, Message{
			ChatID: s.UserID,
			Text:   e.cat.Lookup(lang, catalog.MsgPhoneUpdated, map[string]string{"phone": phone}),
		})
	}
	return ignore(s)
}

func (e *Engine) selectZone(s session.Session, ev ZoneTextSelected) Outcome {
	if s.Step != session.StepAwaitingZone {
		return ignore(s)
	}
	lang := s.Lang()
	key, ok := e.cat.ZoneKeyForLabel(lang, ev.Text)
	if !ok {
		return ignore(s)
	}
	s.Zone = ev.Text
	s.ZoneKey = key
	s.Step = session.StepAwaitingTable

	tables := e.cat.TablesFor(key, lang)
	rows := make([][]Button, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, []Button{{Label: t.Label, Data: TableCallbackPrefix + t.ID}})
	}
	return transition(s, Message{
		ChatID:   s.UserID,
		Text:     e.cat.Lookup(lang, catalog.MsgChooseTable, map[string]string{"zone": s.Zone}),
		Keyboard: &Keyboard{Kind: KeyboardInline, Rows: rows},
	})
}

func (e *Engine) selectTable(s session.Session, ev TableSelected) Outcome {
	if s.Step != session.StepAwaitingTable || !catalog.HasTable(s.ZoneKey, ev.TableID) {
		return ignore(s)
	}
	lang := s.Lang()
	for _, t := range e.cat.TablesFor(s.ZoneKey, lang) {
		if t.ID == ev.TableID {
			s.Table = t.Label
			break
		}
	}
	s.Step = session.StepAwaitingDate
	return transition(s, Message{
		ChatID:   s.UserID,
		Text:     "📅 " + e.cat.Lookup(lang, catalog.MsgChooseDate, map[string]string{"table": s.Table}),
		Markdown: true,
		Keyboard: &Keyboard{
			Kind:     KeyboardDatePicker,
			Weekdays: e.cat.Weekdays(lang),
			Months:   e.cat.Months(lang),
		},
	})
}

func (e *Engine) selectDate(s session.Session, ev DateSelected) Outcome {
	if s.Step != session.StepAwaitingDate {
		return ignore(s)
	}
	if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
		return ignore(s)
	}
	s.Date = ev.Date
	s.Step = session.StepAwaitingTime
	return transition(s, Message{
		ChatID: s.UserID,
		Text:   e.cat.Lookup(s.Lang(), catalog.MsgChooseTime, map[string]string{"date": s.Date}),
	})
}

func (e *Engine) enterTime(s session.Session, ev TimeTextEntered) Outcome {
	text := strings.TrimSpace(ev.Text)
	if s.Step != session.StepAwaitingTime || !ValidTime(text) {
		return ignore(s)
	}
	lang := s.Lang()
	s.Time = text
	s.Step = session.StepAwaitingConfirmation
	return transition(s, Message{
		ChatID: s.UserID,
		Text:   e.cat.Lookup(lang, catalog.MsgConfirmation, map[string]string{"time": s.Time}),
		Keyboard: inline(
			[]Button{{Label: "✅ " + e.cat.Lookup(lang, catalog.MsgConfirm, nil), Data: ActionConfirm}},
			[]Button{{Label: "❌ " + e.cat.Lookup(lang, catalog.MsgCancel, nil), Data: ActionCancel}},
		),
	})
}

func (e *Engine) invoke(s session.Session, ev ActionInvoked) Outcome {
	switch ev.Name {
	case ActionConfirm:
		return e.confirm(s)
	case ActionCancel:
		return e.cancel(s)
	case ActionReserveAgain:
		return e.reserveAgain(s)
	}
	return ignore(s)
}

func (e *Engine) confirm(s session.Session) Outcome {
	if s.Step != session.StepAwaitingConfirmation {
		return ignore(s)
	}
	if missing := s.MissingFields(); len(missing) > 0 {
		return Outcome{
			Result:   Rejected,
			Session:  s,
			Messages: []Message{e.errorMessage(s)},
			Err:      fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", ")),
		}
	}
	draft := &model.Reservation{
		UserID: s.UserID,
		Phone:  s.Phone,
		Zone:   s.Zone,
		Table:  s.Table,
		Date:   s.Date,
		Time:   s.Time,
		Status: model.StatusPending,
	}
	if s.Username != "" {
		u := s.Username
		draft.Username = &u
	}
	return Outcome{Result: NeedsCreate, Session: s, Draft: draft}
}

func (e *Engine) cancel(s session.Session) Outcome {
	switch s.Step {
	case session.StepAwaitingZone, session.StepAwaitingTable, session.StepAwaitingDate,
		session.StepAwaitingTime, session.StepAwaitingConfirmation:
	default:
		return ignore(s)
	}
	s.ClearBooking()
	s.Step = session.StepAwaitingZone
	return transition(s,
		Message{ChatID: s.UserID, Text: e.cat.Lookup(s.Lang(), catalog.MsgRestart, nil)},
		e.zonePrompt(s),
	)
}

func (e *Engine) reserveAgain(s session.Session) Outcome {
	if s.Step != session.StepCompleted {
		return ignore(s)
	}
	s.ClearBooking()
	s.Step = session.StepAwaitingContact
	return transition(s, e.contactPrompt(s))
}

func (e *Engine) contactPrompt(s session.Session) Message {
	lang := s.Lang()
	return Message{
		ChatID: s.UserID,
		Text:   e.cat.Lookup(lang, catalog.MsgWelcome, nil),
		Keyboard: &Keyboard{
			Kind:    KeyboardReply,
			Rows:    [][]Button{{{Label: e.cat.Lookup(lang, catalog.MsgSharePhone, nil), RequestContact: true}}},
			OneTime: true,
		},
	}
}

func (e *Engine) zonePrompt(s session.Session) Message {
	lang := s.Lang()
	zones := e.cat.ZonesFor(lang)
	rows := make([][]Button, 0, len(zones))
	for _, z := range zones {
		rows = append(rows, []Button{{Label: z.Label}})
	}
	return Message{
		ChatID:   s.UserID,
		Text:     e.cat.Lookup(lang, catalog.MsgChooseZone, nil),
		Keyboard: &Keyboard{Kind: KeyboardReply, Rows: rows, OneTime: true},
	}
}

func (e *Engine) errorMessage(s session.Session) Message {
	return Message{ChatID: s.UserID, Text: e.cat.Lookup(s.Lang(), catalog.MsgError, nil)}
}

func transition(s session.Session, msgs ...Message) Outcome {
	return Outcome{Result: Transitioned, Session: s, Messages: msgs}
}

func ignore(s session.Session) Outcome {
	return Outcome{Result: Ignored, Session: s, Err: ErrUnmatchedInput}
}

func inline(rows ...[]Button) *Keyboard {
	return &Keyboard{Kind: KeyboardInline, Rows: rows}
}
