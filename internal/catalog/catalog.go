// Package catalog holds the static venue layout (zones and their tables)
// and the localized texts the bot sends.  A Catalog is immutable once
// loaded and safe for concurrent use.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	msgcat "golang.org/x/text/message/catalog"
)

// Language is a supported dialogue language.
type Language string

const (
	Russian Language = "ru"
	Uzbek   Language = "uz"

	// DefaultLanguage is used whenever a user has no recorded language.
	DefaultLanguage = Russian
)

// Fixed language-selection button labels.  They are the same in every
// language because the user has not picked one yet.
const (
	RussianLabel = "🇷🇺 Russian"
	UzbekLabel   = "🇺🇿 Uzbek"

	LanguagePrompt = "Пожалуйста выберите / Iltimos, tilni tanlang"
	PrivateOnly    = "⚠️ Пожалуйста, отправьте мне личное сообщение, чтобы начать.\n\n⚠️ Iltimos, menga shaxsiy xabar yuboring."
)

// Message ids used by the conversation and the notifier.
const (
	MsgWelcome           = "welcome"
	MsgSharePhone        = "share_phone"
	MsgThankYou          = "thank_you"
	MsgChooseZone        = "choose_zone"
	MsgChooseTable       = "choose_table"
	MsgChooseDate        = "choose_date"
	MsgChooseTime        = "choose_time"
	MsgConfirmation      = "confirmation"
	MsgConfirm           = "confirm"
	MsgCancel            = "cancel"
	MsgFinalConfirmation = "final_confirmation"
	MsgReserveAgain      = "reserve_again"
	MsgRestart           = "restart"
	MsgError             = "error"
	MsgPhoneUpdated      = "phone_updated"
	MsgStatusApproved    = "status_approved"
	MsgStatusCanceled    = "status_canceled"
	MsgAdminSummary      = "admin_summary"
)

var requiredMessages = []string{
	MsgWelcome, MsgSharePhone, MsgThankYou, MsgChooseZone, MsgChooseTable,
	MsgChooseDate, MsgChooseTime, MsgConfirmation, MsgConfirm, MsgCancel,
	MsgFinalConfirmation, MsgReserveAgain, MsgRestart, MsgError,
	MsgPhoneUpdated, MsgStatusApproved, MsgStatusCanceled, MsgAdminSummary,
}

// zoneLayout is the venue floor plan.  Order is the display order.
var zoneLayout = []struct {
	key    string
	tables []string
}{
	{"premium", []string{"Table 1", "Table 2", "Table 3"}},
	{"american", []string{"Table 1", "Table 2", "Table 3", "Table 4"}},
	{"usual", []string{"Table 1", "Table 2", "Table 3", "Table 4", "Table 5"}},
	{"vip", []string{"Table 1"}},
}

var languages = []Language{Russian, Uzbek}

var languageTags = map[Language]language.Tag{Russian: language.Russian, Uzbek: language.Uzbek}

// placeholders are the {name} parameters templates may use.  A template
// is registered with each {name} rewritten to the positional verb of its
// index here, so Lookup passes arguments in this order.
var placeholders = []string{"phone", "zone", "table", "date", "time", "username", "user_id"}

var matcher = language.NewMatcher([]language.Tag{language.Russian, language.Uzbek})

// Zone is a zone key paired with its label in some language.
type Zone struct {
	Key   string
	Label string
}

// Table is a table id paired with its label in some language.
type Table struct {
	ID    string
	Label string
}

type localeFile struct {
	Messages map[string]string `json:"messages"`
	Zones    map[string]string `json:"zones"`
	Tables   map[string]string `json:"tables"`
	Weekdays []string          `json:"weekdays"`
	Months   []string          `json:"months"`
}

type locale struct {
	localeFile
	zoneByLabel map[string]string
	printer     *message.Printer
	arity       map[string]int // highest placeholder index used per message
}

// Catalog is the loaded set of locales.
type Catalog struct {
	locales map[Language]*locale
}

//go:embed messages.json
var embeddedMessages []byte

// Load parses the embedded message catalog.
func Load() (*Catalog, error) {
	return Parse(embeddedMessages)
}

// MustLoad is Load for process start-up; it panics on a broken catalog.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a Catalog from JSON and validates that every language
// covers the full layout and every required message.
func Parse(data []byte) (*Catalog, error) {
	var raw map[Language]localeFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{locales: make(map[Language]*locale, len(languages))}
	for _, lang := range languages {
		file, ok := raw[lang]
		if !ok {
			return nil, fmt.Errorf("catalog: language %q missing", lang)
		}
		loc, err := buildLocale(lang, file)
		if err != nil {
			return nil, err
		}
		c.locales[lang] = loc
	}
	return c, nil
}

func buildLocale(lang Language, file localeFile) (*locale, error) {
	for _, id := range requiredMessages {
		if strings.TrimSpace(file.Messages[id]) == "" {
			return nil, fmt.Errorf("catalog %s: message %q missing", lang, id)
		}
	}
	if len(file.Weekdays) != 7 {
		return nil, fmt.Errorf("catalog %s: want 7 weekdays, got %d", lang, len(file.Weekdays))
	}
	if len(file.Months) != 12 {
		return nil, fmt.Errorf("catalog %s: want 12 months, got %d", lang, len(file.Months))
	}
	loc := &locale{
		localeFile:  file,
		zoneByLabel: make(map[string]string, len(zoneLayout)),
		arity:       make(map[string]int, len(file.Messages)),
	}
	tag := languageTags[lang]
	b := msgcat.NewBuilder(msgcat.Fallback(tag))
	for id, tmpl := range file.Messages {
		format, n := compileTemplate(tmpl)
		if err := b.SetString(tag, id, format); err != nil {
			return nil, fmt.Errorf("catalog %s: message %q: %w", lang, id, err)
		}
		loc.arity[id] = n
	}
	loc.printer = message.NewPrinter(tag, message.Catalog(b))
	for _, z := range zoneLayout {
		label := strings.TrimSpace(file.Zones[z.key])
		if label == "" {
			return nil, fmt.Errorf("catalog %s: zone %q has no label", lang, z.key)
		}
		if other, dup := loc.zoneByLabel[label]; dup {
			return nil, fmt.Errorf("catalog %s: zones %q and %q share label %q", lang, other, z.key, label)
		}
		loc.zoneByLabel[label] = z.key
		for _, t := range z.tables {
			if strings.TrimSpace(file.Tables[t]) == "" {
				return nil, fmt.Errorf("catalog %s: table %q has no label", lang, t)
			}
		}
	}
	return loc, nil
}

func (c *Catalog) locale(lang Language) *locale {
	if loc, ok := c.locales[lang]; ok {
		return loc
	}
	return c.locales[DefaultLanguage]
}

// compileTemplate turns a {name} template into a printf format with
// positional verbs and reports the highest index it uses.  Literal
// percent signs are escaped; unknown {names} are kept as text.
func compileTemplate(tmpl string) (string, int) {
	format := strings.ReplaceAll(tmpl, "%", "%%")
	n := 0
	for i, name := range placeholders {
		ph := "{" + name + "}"
		if !strings.Contains(format, ph) {
			continue
		}
		format = strings.ReplaceAll(format, ph, fmt.Sprintf("%%[%d]s", i+1))
		n = i + 1
	}
	return format, n
}

// Lookup renders message id in lang, substituting {key} placeholders from
// params; a missing parameter renders empty.  Unknown languages fall back
// to the default language; unknown ids render as the id itself.
func (c *Catalog) Lookup(lang Language, id string, params map[string]string) string {
	loc := c.locale(lang)
	n, ok := loc.arity[id]
	if !ok {
		return id
	}
	args := make([]interface{}, n)
	for i := range args {
		args[i] = params[placeholders[i]]
	}
	return loc.printer.Sprintf(id, args...)
}

// ZonesFor lists the zones in display order with labels in lang.
func (c *Catalog) ZonesFor(lang Language) []Zone {
	loc := c.locale(lang)
	out := make([]Zone, 0, len(zoneLayout))
	for _, z := range zoneLayout {
		out = append(out, Zone{Key: z.key, Label: loc.Zones[z.key]})
	}
	return out
}

// TablesFor lists the tables of zoneKey in display order with labels in
// lang.  It returns nil for an unknown zone.
func (c *Catalog) TablesFor(zoneKey string, lang Language) []Table {
	ids := TableIDs(zoneKey)
	if ids == nil {
		return nil
	}
	loc := c.locale(lang)
	out := make([]Table, 0, len(ids))
	for _, id := range ids {
		out = append(out, Table{ID: id, Label: loc.Tables[id]})
	}
	return out
}

// ZoneKeyForLabel resolves a zone label shown in lang back to its key.
// Matching is exact; labels from another language do not match.
func (c *Catalog) ZoneKeyForLabel(lang Language, label string) (string, bool) {
	key, ok := c.locale(lang).zoneByLabel[label]
	return key, ok
}

// Weekdays returns short weekday names, Monday first.
func (c *Catalog) Weekdays(lang Language) []string { return c.locale(lang).Weekdays }

// Months returns month names, January first.
func (c *Catalog) Months(lang Language) []string { return c.locale(lang).Months }

// ZoneKeys lists the zone keys in display order.
func ZoneKeys() []string {
	out := make([]string, 0, len(zoneLayout))
	for _, z := range zoneLayout {
		out = append(out, z.key)
	}
	return out
}

// TableIDs lists the table ids of a zone, or nil for an unknown zone.
func TableIDs(zoneKey string) []string {
	for _, z := range zoneLayout {
		if z.key == zoneKey {
			return append([]string(nil), z.tables...)
		}
	}
	return nil
}

// HasTable reports whether tableID belongs to zoneKey.
func HasTable(zoneKey, tableID string) bool {
	for _, id := range TableIDs(zoneKey) {
		if id == tableID {
			return true
		}
	}
	return false
}

// LanguageForLabel maps a language-selection button label to its language.
func LanguageForLabel(label string) (Language, bool) {
	switch strings.TrimSpace(label) {
	case RussianLabel:
		return Russian, true
	case UzbekLabel:
		return Uzbek, true
	}
	return "", false
}

// LanguageLabels returns the selection buttons, hinted language first.
func LanguageLabels(hint Language) []string {
	if hint == Uzbek {
		return []string{UzbekLabel, RussianLabel}
	}
	return []string{RussianLabel, UzbekLabel}
}

// ParseLanguage maps a client language code (e.g. "uz-Latn-UZ", "ru")
// to a supported language.
func ParseLanguage(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return languages[idx], true
}

// Valid reports whether lang is a supported language.
func (l Language) Valid() bool {
	return l == Russian || l == Uzbek
}

// OrDefault returns l, or DefaultLanguage when l is not supported.
func (l Language) OrDefault() Language {
	if l.Valid() {
		return l
	}
	return DefaultLanguage
}
