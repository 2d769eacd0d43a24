package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Router is a Messenger that forwards to the messenger registered for the
// longest prefix of the conversation id
type Router struct {
	mu       sync.RWMutex
	routes   map[string]Messenger
	fallback Messenger
}

// NewRouter creates a router; fallback may be nil
func NewRouter(fallback Messenger) *Router {
	return &Router{
		routes:   make(map[string]Messenger),
		fallback: fallback,
	}
}

// Route sends conversations whose id starts with prefix to m
func (r *Router) Route(prefix string, m Messenger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[prefix] = m
}

func (r *Router) lookup(conv ConversationID) (Messenger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Messenger
	bestLen := -1
	for prefix, m := range r.routes {
		if strings.HasPrefix(string(conv), prefix) && len(prefix) > bestLen {
			best, bestLen = m, len(prefix)
		}
	}
	if best != nil {
		return best, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("no messenger for conversation %s", conv)
}

// Send implements Messenger
func (r *Router) Send(ctx context.Context, conv ConversationID, msg Message) (MessageID, error) {
	m, err := r.lookup(conv)
	if err != nil {
		return "", err
	}
	return m.Send(ctx, conv, msg)
}

// Edit implements Messenger
func (r *Router) Edit(ctx context.Context, conv ConversationID, id MessageID, msg Message) error {
	m, err := r.lookup(conv)
	if err != nil {
		return err
	}
	return m.Edit(ctx, conv, id, msg)
}
