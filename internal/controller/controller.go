// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller coordinates the send-message workflow between the chat
// store and the backend client.
package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/store"
)

// Streamer is the backend surface the controller needs. *chatapi.Client
// implements it.
type Streamer interface {
	ChatStream(ctx context.Context, chatID, message string, callback func(chatapi.Event)) error
}

// Result describes how a send finished.
type Result struct {
	// ChatID is the chat the exchange belonged to.
	ChatID string

	// Reply is the committed bot message content. Empty when nothing was
	// committed (error, or an empty reply).
	Reply string

	// Err is the terminal error, nil on success.
	Err error

	// Duration covers the whole exchange, send to terminal event.
	Duration time.Duration
}

// Controller drives one message exchange at a time. Exactly one send may be
// in flight; further sends are rejected until the current one finishes.
type Controller struct {
	store    *store.ChatStore
	client   Streamer
	inFlight atomic.Bool
}

// New creates a controller over the given store and backend client.
func New(s *store.ChatStore, client Streamer) *Controller {
	return &Controller{store: s, client: client}
}

// IsBusy reports whether a send is currently in flight.
func (c *Controller) IsBusy() bool {
	return c.inFlight.Load()
}

// SendMessage runs one full exchange against the active chat:
//
//  1. reject blank input and concurrent sends
//  2. append the user message to the store (deriving the title if first)
//  3. stream the reply, forwarding each content delta to onDelta
//  4. on graceful end, commit the accumulated reply as a bot message;
//     on an error frame or transport failure, discard the partial reply
//
// The in-flight guard is released on every exit path, so one failed send
// never wedges the controller.
func (c *Controller) SendMessage(ctx context.Context, content string, onDelta func(string)) Result {
	content = strings.TrimSpace(content)
	if content == "" {
		return Result{Err: chatapi.NewClientError(chatapi.ErrTypeInvalidInput, "message is empty", chatapi.ErrEmptyMessage)}
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{Err: chatapi.NewClientError(chatapi.ErrTypeInvalidInput, "a request is already in flight", chatapi.ErrRequestInFlight)}
	}
	defer c.inFlight.Store(false)

	// The user message is committed before the network round trip: it is
	// part of local history whether or not the backend answers.
	chatID := c.store.ActiveID()
	if _, err := c.store.AppendMessage(chatID, model.NewMessage(model.SenderUser, content)); err != nil {
		return Result{ChatID: chatID, Err: err}
	}

	start := time.Now()
	acc := chatapi.NewStreamAccumulator()
	streamErr := c.client.ChatStream(ctx, chatID, content, func(ev chatapi.Event) {
		acc.Add(ev)
		if ev.Type == chatapi.EventContent && onDelta != nil {
			onDelta(ev.Content)
		}
	})
	duration := time.Since(start)

	if streamErr != nil {
		// Partial content is discarded: an aborted reply is never committed.
		slog.Warn("message exchange failed",
			"chat_id", chatID,
			"discarded_len", len(acc.Content()),
			"error", streamErr,
		)
		return Result{ChatID: chatID, Err: streamErr, Duration: duration}
	}

	reply := acc.Content()
	if reply != "" {
		if _, err := c.store.AppendMessage(chatID, model.NewMessage(model.SenderBot, reply)); err != nil {
			return Result{ChatID: chatID, Err: err, Duration: duration}
		}
	}

	slog.Info("message exchange complete",
		"chat_id", chatID,
		"reply_len", len(reply),
		"duration", duration,
	)
	return Result{ChatID: chatID, Reply: reply, Duration: duration}
}
