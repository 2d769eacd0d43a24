package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/HaiFongPan/fmbot/internal/chat"
)

// maxQueuedUpdates bounds each conversation's outbox; the oldest updates are
// dropped once a client stops polling
const maxQueuedUpdates = 256

// UpdateType tells a client whether to append a message or replace one
type UpdateType string

const (
	UpdateSend UpdateType = "send"
	UpdateEdit UpdateType = "edit"
)

// Update is one queued bot output
type Update struct {
	Type      UpdateType     `json:"type"`
	MessageID chat.MessageID `json:"message_id"`
	Message   chat.Message   `json:"message"`
	At        time.Time      `json:"at"`
}

// Outbox queues bot output per conversation until a client drains it.
// It implements chat.Messenger.
type Outbox struct {
	mu     sync.Mutex
	queues map[chat.ConversationID][]Update
	limit  int
	now    func() time.Time
}

// NewOutbox creates an empty outbox
func NewOutbox() *Outbox {
	return &Outbox{
		queues: make(map[chat.ConversationID][]Update),
		limit:  maxQueuedUpdates,
		now:    time.Now,
	}
}

// Send implements chat.Messenger
func (o *Outbox) Send(ctx context.Context, conv chat.ConversationID, msg chat.Message) (chat.MessageID, error) {
	id := chat.MessageID(uuid.NewString())
	o.push(conv, Update{Type: UpdateSend, MessageID: id, Message: msg})
	return id, nil
}

// Edit implements chat.Messenger
func (o *Outbox) Edit(ctx context.Context, conv chat.ConversationID, id chat.MessageID, msg chat.Message) error {
	o.push(conv, Update{Type: UpdateEdit, MessageID: id, Message: msg})
	return nil
}

func (o *Outbox) push(conv chat.ConversationID, u Update) {
	o.mu.Lock()
	defer o.mu.Unlock()

	u.At = o.now()
	q := append(o.queues[conv], u)
	if over := len(q) - o.limit; over > 0 {
		logrus.WithFields(logrus.Fields{
			"conversation": conv,
			"dropped":      over,
		}).Warn("Outbox full, dropping oldest updates")
		q = q[over:]
	}
	o.queues[conv] = q
}

// Drain returns and clears the queued updates of conv, oldest first
func (o *Outbox) Drain(conv chat.ConversationID) []Update {
	o.mu.Lock()
	defer o.mu.Unlock()

	q := o.queues[conv]
	delete(o.queues, conv)
	if q == nil {
		return []Update{}
	}
	return q
}

// Pending reports how many updates are queued for conv
func (o *Outbox) Pending(conv chat.ConversationID) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queues[conv])
}

// Sweep drops queues whose newest update is older than ttl. Queues left by
// conversations nobody drains anymore would otherwise live forever.
func (o *Outbox) Sweep(ttl time.Duration) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := o.now().Add(-ttl)
	removed := 0
	for conv, q := range o.queues {
		if len(q) == 0 || q[len(q)-1].At.Before(cutoff) {
			delete(o.queues, conv)
			removed++
		}
	}
	return removed
}

// Forget drops everything queued for conv
func (o *Outbox) Forget(conv chat.ConversationID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.queues, conv)
}
