// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// =============================================================================
// ID GENERATION TESTS
// =============================================================================

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("GenerateID returned empty string")
		}
		if seen[id] {
			t.Fatalf("Duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

// =============================================================================
// TITLE DERIVATION TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short message", "Hi", "Hi"},
		{"trims whitespace", "  Hello  ", "Hello"},
		{"collapses newlines", "line one\nline two", "line one line two"},
		{"long message truncated", strings.Repeat("a", 40), strings.Repeat("a", 27) + "..."},
		{"exactly max length", strings.Repeat("b", 30), strings.Repeat("b", 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.input); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTitleDerivedExactlyOnce(t *testing.T) {
	chat := NewChat("Chat 1")

	changed := chat.Append(NewMessage(SenderUser, "first question"))
	if !changed {
		t.Error("Expected title change on first user message")
	}
	if chat.Title != "first question" {
		t.Errorf("Expected title 'first question', got %q", chat.Title)
	}

	// Second and third user messages must not change the title
	if chat.Append(NewMessage(SenderUser, "second question")) {
		t.Error("Title changed on second user message")
	}
	if chat.Append(NewMessage(SenderUser, "third question")) {
		t.Error("Title changed on third user message")
	}
	if chat.Title != "first question" {
		t.Errorf("Title was overwritten: %q", chat.Title)
	}
}

func TestBotMessageNeverDerivesTitle(t *testing.T) {
	chat := NewChat("Chat 1")

	if chat.Append(NewMessage(SenderBot, "bot greeting")) {
		t.Error("Bot message derived a title")
	}
	if chat.Title != "Chat 1" {
		t.Errorf("Expected default title, got %q", chat.Title)
	}

	// A user message after a bot message still derives the title
	if !chat.Append(NewMessage(SenderUser, "user question")) {
		t.Error("Expected title derivation from first user message")
	}
	if chat.Title != "user question" {
		t.Errorf("Expected 'user question', got %q", chat.Title)
	}
}

func TestLoadedChatKeepsStoredTitle(t *testing.T) {
	// Simulate a chat loaded from storage that already has a user message
	chat := &Chat{
		ID:    GenerateID(),
		Title: "original title",
		Messages: []Message{
			NewMessage(SenderUser, "original question"),
		},
	}

	if chat.Append(NewMessage(SenderUser, "new question")) {
		t.Error("Loaded chat re-derived its title")
	}
	if chat.Title != "original title" {
		t.Errorf("Expected stored title preserved, got %q", chat.Title)
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChatAppendOrder(t *testing.T) {
	chat := NewChat("Chat 1")
	chat.Append(NewMessage(SenderUser, "one"))
	chat.Append(NewMessage(SenderBot, "two"))
	chat.Append(NewMessage(SenderUser, "three"))

	if chat.MessageCount() != 3 {
		t.Fatalf("Expected 3 messages, got %d", chat.MessageCount())
	}

	contents := []string{"one", "two", "three"}
	for i, want := range contents {
		if chat.Messages[i].Content != want {
			t.Errorf("Message %d: expected %q, got %q", i, want, chat.Messages[i].Content)
		}
	}

	last := chat.LastMessage()
	if last == nil || last.Content != "three" {
		t.Error("LastMessage did not return the final message")
	}
}

func TestChatClone(t *testing.T) {
	chat := NewChat("Chat 1")
	chat.Append(NewMessage(SenderUser, "hello"))

	clone := chat.Clone()
	clone.Append(NewMessage(SenderBot, "world"))

	if chat.MessageCount() != 1 {
		t.Error("Mutating the clone affected the original")
	}
	if clone.MessageCount() != 2 {
		t.Error("Clone did not receive the appended message")
	}
}

// =============================================================================
// SERIALIZATION TESTS
// =============================================================================

func TestStateRoundTrip(t *testing.T) {
	chat := NewChat("Chat 1")
	chat.Append(NewMessage(SenderUser, "merhaba"))
	chat.Append(NewMessage(SenderBot, "## Başlık\n\niçerik"))

	state := State{
		Chats:      []*Chat{chat},
		ActiveChat: chat.ID,
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if len(decoded.Chats) != 1 {
		t.Fatalf("Expected 1 chat, got %d", len(decoded.Chats))
	}
	got := decoded.Chats[0]
	if got.ID != chat.ID || got.Title != chat.Title || got.CreatedAt != chat.CreatedAt {
		t.Error("Chat metadata did not survive the round trip")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got.Messages))
	}
	for i := range chat.Messages {
		if got.Messages[i] != chat.Messages[i] {
			t.Errorf("Message %d mismatch: %+v != %+v", i, got.Messages[i], chat.Messages[i])
		}
	}
	if decoded.ActiveChat != chat.ID {
		t.Error("ActiveChat pointer did not survive the round trip")
	}
}
