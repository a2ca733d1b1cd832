// Package transport defines how status text and audio files reach a user.
package transport

import "context"

// StatusHandle identifies a previously sent status message so it can be edited.
type StatusHandle struct {
	ChatID    int64
	MessageID int
}

// Audio is a downloaded file ready to be delivered.
type Audio struct {
	ChatID          int64
	Path            string
	Title           string
	Performer       string
	Caption         string
	DurationSeconds int
	SizeBytes       int64
}

// Transport is the messaging platform seen by the bot.
type Transport interface {
	SendStatus(ctx context.Context, chatID int64, text string) (StatusHandle, error)
	EditStatus(ctx context.Context, handle StatusHandle, text string) error
	DeliverAudio(ctx context.Context, audio Audio) error
}

// Button is an inline button that reports Data back when pressed.
type Button struct {
	Text string
	Data string
}

// Keyboard is a grid of inline buttons, one slice per row.
type Keyboard [][]Button

// Menus is implemented by transports that can turn a status message into a
// menu of inline buttons and acknowledge button presses.
type Menus interface {
	EditMenu(ctx context.Context, handle StatusHandle, text string, keyboard Keyboard) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Message is an incoming text message or button press from a user. Button
// presses carry CallbackID, the button's Data and the MessageID of the menu.
type Message struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string

	CallbackID string
	Data       string
	MessageID  int
}

// IsCallback reports whether the message is a button press
func (m Message) IsCallback() bool {
	return m.CallbackID != ""
}

// Handler processes one incoming message.
type Handler func(ctx context.Context, msg Message)
