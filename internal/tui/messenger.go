package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/HaiFongPan/fmbot/internal/chat"
)

// botSentMsg and botEditedMsg carry bot output into a console program
type botSentMsg struct {
	id  chat.MessageID
	msg chat.Message
}

type botEditedMsg struct {
	id  chat.MessageID
	msg chat.Message
}

// Sender is the part of *tea.Program the messenger needs
type Sender interface {
	Send(msg tea.Msg)
}

// Messenger delivers bot output to console programs, one per conversation.
// Message ids are generated locally so Send never waits on the program.
type Messenger struct {
	mu       sync.RWMutex
	programs map[chat.ConversationID]Sender
}

// NewMessenger creates a messenger with no attached programs
func NewMessenger() *Messenger {
	return &Messenger{programs: make(map[chat.ConversationID]Sender)}
}

// Attach routes output for conv to program
func (m *Messenger) Attach(conv chat.ConversationID, program Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs[conv] = program
}

// Detach stops routing output for conv
func (m *Messenger) Detach(conv chat.ConversationID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.programs, conv)
}

func (m *Messenger) program(conv chat.ConversationID) (Sender, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.programs[conv]
	if !ok {
		return nil, fmt.Errorf("no console attached to conversation %s", conv)
	}
	return p, nil
}

// Send implements chat.Messenger
func (m *Messenger) Send(ctx context.Context, conv chat.ConversationID, msg chat.Message) (chat.MessageID, error) {
	p, err := m.program(conv)
	if err != nil {
		return "", err
	}
	id := chat.MessageID(uuid.NewString())
	p.Send(botSentMsg{id: id, msg: msg})
	return id, nil
}

// Edit implements chat.Messenger
func (m *Messenger) Edit(ctx context.Context, conv chat.ConversationID, id chat.MessageID, msg chat.Message) error {
	p, err := m.program(conv)
	if err != nil {
		return err
	}
	p.Send(botEditedMsg{id: id, msg: msg})
	return nil
}
