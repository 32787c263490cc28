package conversation

// KeyboardKind selects how a keyboard is rendered by the chat transport.
type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	// KeyboardReply replaces the user's keyboard with text buttons.
	KeyboardReply
	// KeyboardInline attaches callback buttons to the message.
	KeyboardInline
	// KeyboardDatePicker attaches a calendar; Weekdays and Months label it.
	KeyboardDatePicker
	// KeyboardRemove hides a previous reply keyboard.
	KeyboardRemove
)

// Button is one keyboard button.  Data is the callback payload of inline
// buttons; RequestContact makes a reply button share the user's phone.
type Button struct {
	Label          string
	Data           string
	RequestContact bool
}

// Keyboard describes the buttons sent with a message.
type Keyboard struct {
	Kind     KeyboardKind
	Rows     [][]Button
	OneTime  bool
	Weekdays []string
	Months   []string
}

// Message is one outbound chat message.
type Message struct {
	ChatID   int64
	Text     string
	Markdown bool
	Keyboard *Keyboard
}
