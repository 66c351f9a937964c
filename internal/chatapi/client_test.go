// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newStreamServer returns a test server whose /chat handler writes the given
// raw stream body.
func newStreamServer(t *testing.T, streamBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			http.NotFound(w, r)
			return
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamBody)
	}))
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestChatStreamSuccess(t *testing.T) {
	server := newStreamServer(t,
		"data: {\"type\":\"content\",\"content\":\"He\"}\n"+
			"data: {\"type\":\"content\",\"content\":\"llo\"}\n"+
			"data: {\"type\":\"end\"}\n")
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	acc := NewStreamAccumulator()

	err := client.ChatStream(context.Background(), "chat-1", "Hi", acc.Add)
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if acc.Content() != "Hello" {
		t.Errorf("Content = %q, want %q", acc.Content(), "Hello")
	}
	if !acc.IsDone() {
		t.Error("Expected stream to complete")
	}
}

func TestChatStreamErrorFrame(t *testing.T) {
	server := newStreamServer(t,
		"data: {\"type\":\"content\",\"content\":\"part\"}\n"+
			"data: {\"type\":\"error\",\"error\":\"quota exceeded\"}\n")
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "chat-1", "Hi", func(Event) {})
	if err == nil {
		t.Fatal("Expected error from error frame")
	}
	if !IsStreamError(err) {
		t.Errorf("Expected stream error, got %v", err)
	}
	if UserMessage(err) != "quota exceeded" {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestChatStreamRejectsEmptyMessage(t *testing.T) {
	client := NewClient(DefaultConfig())
	err := client.ChatStream(context.Background(), "chat-1", "   ", func(Event) {})
	if err == nil {
		t.Fatal("Expected rejection of blank message")
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeInvalidInput {
		t.Errorf("Expected invalid_input error, got %v", err)
	}
}

func TestChatStreamConnectionRefused(t *testing.T) {
	// Port 1 is essentially never listening.
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	err := client.ChatStream(context.Background(), "chat-1", "Hi", func(Event) {})
	if err == nil {
		t.Fatal("Expected connection error")
	}
	if !IsConnectionError(err) {
		t.Errorf("Expected connection error, got %v", err)
	}
}

func TestChatStreamServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(StatusResponse{Error: "internal failure"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "chat-1", "Hi", func(Event) {})
	if err == nil {
		t.Fatal("Expected server error")
	}
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeServer {
		t.Errorf("Expected server error, got %v", err)
	}
}

func TestChatStreamChan(t *testing.T) {
	server := newStreamServer(t,
		"data: {\"type\":\"content\",\"content\":\"A\"}\n"+
			"data: {\"type\":\"end\"}\n")
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	var content string
	for ev := range client.ChatStreamChan(context.Background(), "chat-1", "Hi") {
		if ev.Err != nil {
			t.Fatalf("Unexpected stream error: %v", ev.Err)
		}
		if ev.Event.Type == EventContent {
			content += ev.Event.Content
		}
	}
	if content != "A" {
		t.Errorf("Content = %q", content)
	}
}

// =============================================================================
// NON-STREAMING TESTS
// =============================================================================

func TestDeleteChatAndReset(t *testing.T) {
	var gotPath, gotChatID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var ref ChatRef
		json.NewDecoder(r.Body).Decode(&ref)
		gotChatID = ref.ChatID
		json.NewEncoder(w).Encode(StatusResponse{Status: "success"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	if err := client.DeleteChat(context.Background(), "chat-9"); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}
	if gotPath != "/delete_chat" || gotChatID != "chat-9" {
		t.Errorf("DeleteChat sent %s %s", gotPath, gotChatID)
	}

	if err := client.Reset(context.Background(), "chat-9"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if gotPath != "/reset" {
		t.Errorf("Reset hit %s", gotPath)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(StatusResponse{Status: "ok"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfigEnvOverride(t *testing.T) {
	t.Setenv("VIKICHAT_SERVER_URL", "http://example.test:9999")
	if got := DefaultConfig().BaseURL; got != "http://example.test:9999" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestConfigNormalize(t *testing.T) {
	c := ClientConfig{BaseURL: "http://host:5000///"}
	c.normalize()
	if c.BaseURL != "http://host:5000" {
		t.Errorf("BaseURL = %q", c.BaseURL)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v", c.Timeout)
	}
}
