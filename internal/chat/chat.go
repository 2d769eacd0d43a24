// Package chat defines the conversation surface shared by the bot and the
// transports that carry it (console, HTTP gateway, SSH).
package chat

import (
	"context"
	"strings"
)

// ConversationID identifies one exchange with a single end user
type ConversationID string

// MessageID identifies a message previously sent into a conversation
type MessageID string

// Button is an inline button. A button carries either an Action that is
// routed back to the bot or a URL that the client opens itself.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action,omitempty"`
	URL    string `json:"url,omitempty"`
}

// IsLink reports whether the button opens a URL instead of emitting an action
func (b Button) IsLink() bool {
	return b.URL != ""
}

// Keyboard is a grid of buttons, one slice per row
type Keyboard [][]Button

// Buttons flattens the keyboard in row order
func (k Keyboard) Buttons() []Button {
	var buttons []Button
	for _, row := range k {
		buttons = append(buttons, row...)
	}
	return buttons
}

// Message is what the bot renders into a conversation
type Message struct {
	Text     string   `json:"text"`
	PhotoURL string   `json:"photo_url,omitempty"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

// EventKind tells the bot how to dispatch an Event
type EventKind int

const (
	// EventCommand is a slash command such as /start
	EventCommand EventKind = iota
	// EventAction is an inline button press
	EventAction
	// EventText is free text typed by the user
	EventText
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventAction:
		return "action"
	case EventText:
		return "text"
	default:
		return "unknown"
	}
}

// Event is one user interaction in a conversation
type Event struct {
	Conversation ConversationID
	Kind         EventKind
	// Command is the command name without the leading slash
	Command string
	// Args is everything after the command name
	Args   string
	Action string
	Text   string
	// MessageID is the message whose button was pressed, if any
	MessageID MessageID
}

// Messenger delivers bot output to a conversation
type Messenger interface {
	Send(ctx context.Context, conv ConversationID, msg Message) (MessageID, error)
	Edit(ctx context.Context, conv ConversationID, id MessageID, msg Message) error
}

// ParseInput turns a line typed by the user into a command or text event
func ParseInput(conv ConversationID, input string) Event {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "/") && len(trimmed) > 1 {
		name, args, _ := strings.Cut(trimmed[1:], " ")
		// "/start@botname" style suffixes are dropped
		name, _, _ = strings.Cut(name, "@")
		return Event{
			Conversation: conv,
			Kind:         EventCommand,
			Command:      strings.ToLower(name),
			Args:         strings.TrimSpace(args),
		}
	}
	return Event{
		Conversation: conv,
		Kind:         EventText,
		Text:         input,
	}
}

// ActionEvent builds the event for a button press on message id
func ActionEvent(conv ConversationID, id MessageID, action string) Event {
	return Event{
		Conversation: conv,
		Kind:         EventAction,
		Action:       action,
		MessageID:    id,
	}
}
