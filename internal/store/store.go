// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory chat collection and enforces its
// invariants: there is always at least one chat, the active pointer always
// refers to an existing chat, and memory is authoritative — saves are
// best-effort and never fail an operation.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
)

// newChatTitle names a synthesized chat by its position: "Chat 1", "Chat 2".
// The count is taken before the chat is added, matching the sidebar number
// the user will see.
func newChatTitle(count int) string {
	return fmt.Sprintf("Chat %d", count+1)
}

// Persister saves the store state. *storage.Adapter implements it.
type Persister interface {
	Save(state model.State) error
}

// Notifier mirrors destructive chat operations to the backend so it can drop
// its per-chat conversation context. Failures are logged, never propagated:
// local state is the source of truth and must not be held hostage by an
// unreachable backend.
type Notifier interface {
	DeleteChat(ctx context.Context, chatID string) error
	Reset(ctx context.Context, chatID string) error
}

// ChatStore is the authoritative owner of all chats. Safe for concurrent use.
type ChatStore struct {
	mu        sync.RWMutex
	chats     []*model.Chat // most-recent-first
	activeID  string
	persister Persister
	notifier  Notifier
	onChange  func()
}

// New creates a store from a loaded state. Unusable entries (null, missing
// id) are dropped; if nothing remains, one empty chat is synthesized and
// made active; a missing or dangling active pointer is repaired to the
// first chat. Any repair is persisted immediately, best-effort.
func New(state model.State, persister Persister, notifier Notifier) *ChatStore {
	s := &ChatStore{
		persister: persister,
		notifier:  notifier,
		activeID:  state.ActiveChat,
	}

	// A hand-edited or truncated state file can hold null or id-less
	// entries; they are dropped, not fatal.
	repaired := false
	for _, c := range state.Chats {
		if c == nil || c.ID == "" {
			repaired = true
			continue
		}
		s.chats = append(s.chats, c)
	}

	if len(s.chats) == 0 {
		s.chats = []*model.Chat{model.NewChat(newChatTitle(0))}
		s.activeID = s.chats[0].ID
		repaired = true
	}
	if s.findLocked(s.activeID) == nil {
		s.activeID = s.chats[0].ID
		repaired = true
	}

	if repaired {
		s.persistLocked()
	}
	return s
}

// SetOnChange registers a callback invoked after every successful mutation,
// outside the store lock. Used by the UI to refresh.
func (s *ChatStore) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// =============================================================================
// QUERIES
// =============================================================================

// Active returns a deep copy of the active chat.
func (s *ChatStore) Active() *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(s.activeID).Clone()
}

// ActiveID returns the active chat's id.
func (s *ChatStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Find returns a deep copy of the chat with the given id, or nil.
func (s *ChatStore) Find(id string) *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c := s.findLocked(id); c != nil {
		return c.Clone()
	}
	return nil
}

// List returns deep copies of all chats, most-recent-first.
func (s *ChatStore) List() []*model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

// Count returns the number of chats.
func (s *ChatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateChat adds a new empty chat at the front of the list and makes it
// active. Returns a copy of the created chat.
func (s *ChatStore) CreateChat() *model.Chat {
	s.mu.Lock()
	chat := model.NewChat(newChatTitle(len(s.chats)))
	s.chats = append([]*model.Chat{chat}, s.chats...)
	s.activeID = chat.ID
	s.persistLocked()
	clone := chat.Clone()
	s.mu.Unlock()

	s.notifyChange()
	slog.Info("chat created", "chat_id", clone.ID)
	return clone
}

// SwitchChat makes the chat with the given id active. Switching to an
// unknown id is a validated no-op: the active pointer must never dangle.
func (s *ChatStore) SwitchChat(id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return fmt.Errorf("unknown chat id %q", id)
	}
	if s.activeID == id {
		s.mu.Unlock()
		return nil
	}
	s.activeID = id
	s.persistLocked()
	s.mu.Unlock()

	s.notifyChange()
	return nil
}

// DeleteChat removes the chat with the given id. If it was active, the first
// remaining chat becomes active; deleting the last chat synthesizes a fresh
// empty one so the store is never empty. Deleting an id that does not exist
// is a no-op. The backend is told to drop its context for the deleted chat.
func (s *ChatStore) DeleteChat(ctx context.Context, id string) {
	s.mu.Lock()
	index := -1
	for i, c := range s.chats {
		if c.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		s.mu.Unlock()
		slog.Debug("delete of unknown chat ignored", "chat_id", id)
		return
	}

	s.chats = append(s.chats[:index], s.chats[index+1:]...)
	if len(s.chats) == 0 {
		s.chats = []*model.Chat{model.NewChat(newChatTitle(0))}
	}
	if s.activeID == id {
		s.activeID = s.chats[0].ID
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notifyBackend(ctx, "delete", id, func() error {
		return s.notifier.DeleteChat(ctx, id)
	})
	s.notifyChange()
	slog.Info("chat deleted", "chat_id", id)
}

// AppendMessage adds a message to the chat with the given id and reports
// whether the chat title was derived from it.
func (s *ChatStore) AppendMessage(id string, msg model.Message) (titleChanged bool, err error) {
	s.mu.Lock()
	chat := s.findLocked(id)
	if chat == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("unknown chat id %q", id)
	}
	titleChanged = chat.Append(msg)
	s.persistLocked()
	s.mu.Unlock()

	s.notifyChange()
	return titleChanged, nil
}

// ClearActive removes all messages from the active chat, keeping the chat
// itself, and resets the backend context so the conversation starts over.
func (s *ChatStore) ClearActive(ctx context.Context) {
	s.mu.Lock()
	chat := s.findLocked(s.activeID)
	id := chat.ID
	chat.ClearMessages()
	s.persistLocked()
	s.mu.Unlock()

	s.notifyBackend(ctx, "reset", id, func() error {
		return s.notifier.Reset(ctx, id)
	})
	s.notifyChange()
	slog.Info("chat cleared", "chat_id", id)
}

// =============================================================================
// INTERNAL
// =============================================================================

// findLocked returns the chat with the given id. Caller holds the lock.
func (s *ChatStore) findLocked(id string) *model.Chat {
	for _, c := range s.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// persistLocked saves the current state, best-effort. A failed save is
// logged and otherwise ignored: the in-memory state is authoritative and a
// full disk must not break chatting. Caller holds the lock.
func (s *ChatStore) persistLocked() {
	if err := s.persister.Save(model.State{Chats: s.chats, ActiveChat: s.activeID}); err != nil {
		slog.Warn("saving chats failed", "error", err)
	}
}

// notifyBackend runs a backend side effect, logging failure instead of
// returning it.
func (s *ChatStore) notifyBackend(ctx context.Context, op, chatID string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		slog.Warn("backend notification failed", "op", op, "chat_id", chatID, "error", err)
	}
}

// notifyChange invokes the change callback outside the lock.
func (s *ChatStore) notifyChange() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
