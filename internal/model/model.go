// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/util"
)

// TitleMaxRunes is the maximum length of an auto-derived chat title.
const TitleMaxRunes = 30

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies the author of a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Bot"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn in a conversation. Messages are immutable once
// appended; display order is append order.
type Message struct {
	Sender    Sender `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// NewMessage creates a message stamped with the current time.
func NewMessage(sender Sender, content string) Message {
	return Message{
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Preview returns a single-line truncated preview of the message content.
func (m Message) Preview(maxRunes int) string {
	return util.TruncateRunes(util.CollapseNewlines(m.Content), maxRunes)
}

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is one conversation thread: an ordered message sequence plus metadata.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // epoch milliseconds
}

// NewChat creates an empty chat with a generated ID and the given title.
func NewChat(title string) *Chat {
	return &Chat{
		ID:        GenerateID(),
		Title:     title,
		Messages:  make([]Message, 0),
		CreatedAt: time.Now().UnixMilli(),
	}
}

// Append adds a message to the chat and reports whether the chat title was
// derived as a result. The title derives exactly once, from the chat's first
// user message, truncated to TitleMaxRunes; later messages never change it.
// A loaded chat that already holds a user message keeps its stored title.
func (c *Chat) Append(msg Message) (titleChanged bool) {
	hadUserMessage := c.FirstUserMessage() != nil
	c.Messages = append(c.Messages, msg)

	if msg.Sender == SenderUser && !hadUserMessage {
		c.Title = DeriveTitle(msg.Content)
		return true
	}
	return false
}

// FirstUserMessage returns the first user-authored message, or nil.
func (c *Chat) FirstUserMessage() *Message {
	for i := range c.Messages {
		if c.Messages[i].Sender == SenderUser {
			return &c.Messages[i]
		}
	}
	return nil
}

// LastMessage returns the most recent message, or nil if the chat is empty.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// MessageCount returns the number of messages in the chat.
func (c *Chat) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the chat has no messages.
func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

// ClearMessages removes all messages. The title is kept.
func (c *Chat) ClearMessages() {
	c.Messages = make([]Message, 0)
}

// Clone returns a deep copy of the chat.
func (c *Chat) Clone() *Chat {
	clone := &Chat{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Messages:  make([]Message, len(c.Messages)),
	}
	copy(clone.Messages, c.Messages)
	return clone
}

// DeriveTitle builds a chat title from the first user message: collapsed to
// one line and truncated to TitleMaxRunes with an ellipsis when cut.
func DeriveTitle(content string) string {
	return util.TruncateRunes(util.CollapseNewlines(strings.TrimSpace(content)), TitleMaxRunes)
}

// =============================================================================
// STORE STATE
// =============================================================================

// State is the persisted shape of the chat collection: all chats
// (most-recent-first) plus the active-chat pointer.
type State struct {
	Chats      []*Chat `json:"chats"`
	ActiveChat string  `json:"activeChat,omitempty"`
}

// =============================================================================
// ID GENERATION
// =============================================================================

// GenerateID creates a chat ID from a base-36 epoch-millisecond prefix and a
// random suffix. The time component keeps IDs roughly sortable; the random
// component makes collisions negligible within a store lifetime.
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + suffix
}
