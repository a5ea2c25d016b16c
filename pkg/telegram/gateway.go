package telegram

import "context"

// Gateway is the messaging transport contract consumed by the access
// lifecycle: inbound update retrieval plus the two outbound actions. All
// methods may fail with a transport error; callers log and continue, a
// transport failure is never fatal.
type Gateway interface {
	// FetchUpdates returns the updates with sequence id >= offset, in order
	FetchUpdates(ctx context.Context, offset int64) ([]Update, error)

	// SendMessage delivers an HTML-formatted message, optionally with a
	// single row of inline buttons
	SendMessage(ctx context.Context, chatID int64, text string, buttons ...Button) error

	// RemoveMember kicks a user from a group
	RemoveMember(ctx context.Context, chatID int64, userID int64) error
}

// Button is one inline keyboard button whose payload comes back as a
// callback query when pressed
type Button struct {
	Text string
	Data string
}

// Update is one inbound event from the transport. Exactly one of Message and
// CallbackQuery is set; updates of other kinds carry neither and are skipped
// by the dispatch loop (their sequence id still advances the cursor).
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is an inbound text message
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// CallbackQuery is an inline button press carrying the button's payload
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

// User identifies a Telegram account
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Chat identifies a private chat or group
type Chat struct {
	ID int64 `json:"id"`
}

// ChatID returns the chat the callback's message was posted in, falling back
// to the pressing user's id when the origin message is gone
func (q *CallbackQuery) ChatID() int64 {
	if q.Message != nil {
		return q.Message.Chat.ID
	}
	return q.From.ID
}
