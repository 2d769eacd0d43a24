// Package session keeps the navigation state of every conversation in
// memory. State is lost on restart.
package session

import (
	"sync"
	"time"

	"github.com/HaiFongPan/fmbot/internal/chat"
)

// Screen is the view a conversation is currently looking at
type Screen int

const (
	ScreenMainMenu Screen = iota
	ScreenFolderList
	ScreenFolderActions
	ScreenFileList
	ScreenAwaitingRenameInput
	ScreenAwaitingUploadURL
	ScreenTutorial
	ScreenAccountInfo
	ScreenSendAllLinks
)

func (s Screen) String() string {
	switch s {
	case ScreenMainMenu:
		return "main_menu"
	case ScreenFolderList:
		return "folder_list"
	case ScreenFolderActions:
		return "folder_actions"
	case ScreenFileList:
		return "file_list"
	case ScreenAwaitingRenameInput:
		return "awaiting_rename_input"
	case ScreenAwaitingUploadURL:
		return "awaiting_upload_url"
	case ScreenTutorial:
		return "tutorial"
	case ScreenAccountInfo:
		return "account_info"
	case ScreenSendAllLinks:
		return "send_all_links"
	default:
		return "unknown"
	}
}

// PendingKind is what the next free-text message will be used for
type PendingKind int

const (
	PendingNone PendingKind = iota
	PendingRenameText
	PendingUploadURL
)

func (k PendingKind) String() string {
	switch k {
	case PendingRenameText:
		return "awaiting_rename_text"
	case PendingUploadURL:
		return "awaiting_upload_url"
	default:
		return "none"
	}
}

// PendingAction is the single slot awaiting a free-text reply
type PendingAction struct {
	Kind     PendingKind
	FolderID int64
}

// Active reports whether the slot holds a request
func (p PendingAction) Active() bool {
	return p.Kind != PendingNone
}

// NavigationContext is the per-conversation navigation state
type NavigationContext struct {
	Screen          Screen
	ActiveFolderID  int64
	HasActiveFolder bool
	Pending         PendingAction
	CurrentPage     int
	LastSeen        time.Time
}

func newNavigationContext(now time.Time) NavigationContext {
	return NavigationContext{
		Screen:      ScreenMainMenu,
		CurrentPage: 1,
		LastSeen:    now,
	}
}

// SetPending fills the pending slot, replacing any earlier request
func (n *NavigationContext) SetPending(kind PendingKind, folderID int64) {
	n.Pending = PendingAction{Kind: kind, FolderID: folderID}
}

// TakePending empties the pending slot and returns what it held
func (n *NavigationContext) TakePending() PendingAction {
	p := n.Pending
	n.Pending = PendingAction{}
	return p
}

// SetActiveFolder records the folder the conversation is working on
func (n *NavigationContext) SetActiveFolder(folderID int64) {
	n.ActiveFolderID = folderID
	n.HasActiveFolder = true
}

// ClearActiveFolder forgets the active folder
func (n *NavigationContext) ClearActiveFolder() {
	n.ActiveFolderID = 0
	n.HasActiveFolder = false
}

// ShowFolderList moves the conversation to page of the folder list
func (n *NavigationContext) ShowFolderList(page int) {
	if page < 1 {
		page = 1
	}
	n.Screen = ScreenFolderList
	n.CurrentPage = page
}

type entry struct {
	mu      sync.Mutex
	nav     NavigationContext
	removed bool
}

// Store maps conversations to their navigation state. Each conversation's
// state is guarded by its own lock so that events for one conversation run
// one at a time while different conversations proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	entries map[chat.ConversationID]*entry
	now     func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		entries: make(map[chat.ConversationID]*entry),
		now:     time.Now,
	}
}

// Acquire locks the conversation's state, creating it on first use. The
// returned release func must be called once the event has been handled.
func (s *Store) Acquire(id chat.ConversationID) (*NavigationContext, func()) {
	for {
		e := s.getOrCreate(id)
		e.mu.Lock()
		if e.removed {
			// swept between lookup and lock
			e.mu.Unlock()
			continue
		}

		e.nav.LastSeen = s.now()
		return &e.nav, func() {
			e.nav.LastSeen = s.now()
			e.mu.Unlock()
		}
	}
}

func (s *Store) getOrCreate(id chat.ConversationID) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	e = &entry{nav: newNavigationContext(s.now())}
	s.entries[id] = e
	return e
}

// Snapshot returns a copy of the conversation's state without creating it
func (s *Store) Snapshot(id chat.ConversationID) (NavigationContext, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return NavigationContext{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nav, true
}

// Remove drops a conversation, e.g. when its SSH session ends
func (s *Store) Remove(id chat.ConversationID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// Len returns the number of tracked conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep removes conversations idle for longer than ttl. Conversations that
// are handling an event are skipped. It returns the number removed.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.nav.LastSeen.Before(cutoff) {
			e.removed = true
			delete(s.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
