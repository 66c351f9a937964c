// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/store"
)

// scriptedStreamer plays back a fixed event sequence, or returns an error
// before any events.
type scriptedStreamer struct {
	events  []chatapi.Event
	err     error
	mu      sync.Mutex
	gotMsgs []string

	// block, when non-nil, holds the stream open until closed.
	block chan struct{}
}

func (s *scriptedStreamer) ChatStream(ctx context.Context, chatID, message string, callback func(chatapi.Event)) error {
	s.mu.Lock()
	s.gotMsgs = append(s.gotMsgs, message)
	s.mu.Unlock()

	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return s.err
	}
	var streamErr error
	for _, ev := range s.events {
		callback(ev)
		if ev.Type == chatapi.EventError {
			streamErr = chatapi.NewClientError(chatapi.ErrTypeStream, ev.Error, nil)
			break
		}
	}
	return streamErr
}

type nopPersister struct{}

func (nopPersister) Save(model.State) error { return nil }

type nopNotifier struct{}

func (nopNotifier) DeleteChat(context.Context, string) error { return nil }
func (nopNotifier) Reset(context.Context, string) error      { return nil }

func newTestController(t *testing.T, streamer Streamer) (*Controller, *store.ChatStore) {
	t.Helper()
	s := store.New(model.State{}, nopPersister{}, nopNotifier{})
	return New(s, streamer), s
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendMessageCommitsReply(t *testing.T) {
	streamer := &scriptedStreamer{events: []chatapi.Event{
		{Type: chatapi.EventContent, Content: "He"},
		{Type: chatapi.EventContent, Content: "llo"},
		{Type: chatapi.EventEnd},
	}}
	ctrl, s := newTestController(t, streamer)

	var deltas []string
	result := ctrl.SendMessage(context.Background(), "Hi", func(d string) {
		deltas = append(deltas, d)
	})

	if result.Err != nil {
		t.Fatalf("SendMessage failed: %v", result.Err)
	}
	if result.Reply != "Hello" {
		t.Errorf("Reply = %q, want %q", result.Reply, "Hello")
	}
	if strings.Join(deltas, "|") != "He|llo" {
		t.Errorf("Deltas = %v", deltas)
	}

	chat := s.Active()
	if chat.MessageCount() != 2 {
		t.Fatalf("Expected 2 messages, got %d", chat.MessageCount())
	}
	if chat.Messages[0].Sender != model.SenderUser || chat.Messages[0].Content != "Hi" {
		t.Errorf("User message wrong: %+v", chat.Messages[0])
	}
	if chat.Messages[1].Sender != model.SenderBot || chat.Messages[1].Content != "Hello" {
		t.Errorf("Bot message wrong: %+v", chat.Messages[1])
	}
	if chat.Title != "Hi" {
		t.Errorf("Title = %q, want derived %q", chat.Title, "Hi")
	}
}

func TestSendMessageTrimsInput(t *testing.T) {
	streamer := &scriptedStreamer{events: []chatapi.Event{{Type: chatapi.EventEnd}}}
	ctrl, _ := newTestController(t, streamer)

	result := ctrl.SendMessage(context.Background(), "  padded  ", nil)
	if result.Err != nil {
		t.Fatalf("SendMessage failed: %v", result.Err)
	}
	if len(streamer.gotMsgs) != 1 || streamer.gotMsgs[0] != "padded" {
		t.Errorf("Sent messages = %v", streamer.gotMsgs)
	}
}

func TestSendMessageRejectsBlankInput(t *testing.T) {
	streamer := &scriptedStreamer{}
	ctrl, s := newTestController(t, streamer)

	result := ctrl.SendMessage(context.Background(), "   \n\t  ", nil)
	if result.Err == nil {
		t.Fatal("Expected rejection of blank input")
	}
	if len(streamer.gotMsgs) != 0 {
		t.Error("Blank input reached the backend")
	}
	if !s.Active().IsEmpty() {
		t.Error("Blank input was appended to the chat")
	}
}

func TestSendMessageDiscardsPartialOnErrorFrame(t *testing.T) {
	streamer := &scriptedStreamer{events: []chatapi.Event{
		{Type: chatapi.EventContent, Content: "partial reply"},
		{Type: chatapi.EventError, Error: "model overloaded"},
	}}
	ctrl, s := newTestController(t, streamer)

	result := ctrl.SendMessage(context.Background(), "Hi", nil)
	if result.Err == nil {
		t.Fatal("Expected stream error")
	}
	if !chatapi.IsStreamError(result.Err) {
		t.Errorf("Expected stream error, got %v", result.Err)
	}

	// The user message stays; the partial bot reply is never committed.
	chat := s.Active()
	if chat.MessageCount() != 1 {
		t.Fatalf("Expected 1 message, got %d", chat.MessageCount())
	}
	if chat.Messages[0].Sender != model.SenderUser {
		t.Errorf("Surviving message is not the user's: %+v", chat.Messages[0])
	}
}

func TestSendMessageKeepsUserMessageOnTransportFailure(t *testing.T) {
	streamer := &scriptedStreamer{
		err: chatapi.NewClientError(chatapi.ErrTypeConnection, "cannot reach backend", nil),
	}
	ctrl, s := newTestController(t, streamer)

	result := ctrl.SendMessage(context.Background(), "Hi", nil)
	if !chatapi.IsConnectionError(result.Err) {
		t.Fatalf("Expected connection error, got %v", result.Err)
	}
	if s.Active().MessageCount() != 1 {
		t.Error("User message should survive a transport failure")
	}
}

func TestSendMessageSkipsCommitOfEmptyReply(t *testing.T) {
	streamer := &scriptedStreamer{events: []chatapi.Event{{Type: chatapi.EventEnd}}}
	ctrl, s := newTestController(t, streamer)

	result := ctrl.SendMessage(context.Background(), "Hi", nil)
	if result.Err != nil {
		t.Fatalf("SendMessage failed: %v", result.Err)
	}
	if s.Active().MessageCount() != 1 {
		t.Error("An empty reply must not produce a bot message")
	}
}

// =============================================================================
// IN-FLIGHT GUARD TESTS
// =============================================================================

func TestSecondSendRejectedWhileInFlight(t *testing.T) {
	streamer := &scriptedStreamer{
		events: []chatapi.Event{{Type: chatapi.EventEnd}},
		block:  make(chan struct{}),
	}
	ctrl, _ := newTestController(t, streamer)

	firstDone := make(chan Result, 1)
	go func() {
		firstDone <- ctrl.SendMessage(context.Background(), "first", nil)
	}()

	// Wait until the first send is inside the stream call.
	for !ctrl.IsBusy() {
		time.Sleep(time.Millisecond)
	}

	second := ctrl.SendMessage(context.Background(), "second", nil)
	if second.Err == nil {
		t.Fatal("Expected second send to be rejected")
	}

	close(streamer.block)
	first := <-firstDone
	if first.Err != nil {
		t.Fatalf("First send failed: %v", first.Err)
	}
}

func TestGuardReleasedAfterFailure(t *testing.T) {
	streamer := &scriptedStreamer{
		err: chatapi.NewClientError(chatapi.ErrTypeConnection, "down", nil),
	}
	ctrl, _ := newTestController(t, streamer)

	if ctrl.SendMessage(context.Background(), "first", nil).Err == nil {
		t.Fatal("Expected failure")
	}
	if ctrl.IsBusy() {
		t.Fatal("Guard not released after failure")
	}

	// A later send must be accepted again.
	streamer.err = nil
	streamer.events = []chatapi.Event{{Type: chatapi.EventEnd}}
	if result := ctrl.SendMessage(context.Background(), "second", nil); result.Err != nil {
		t.Fatalf("Retry rejected: %v", result.Err)
	}
}
