// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines all Bubble Tea message types used by the chat interface.
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/controller"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/history"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamDeltaMsg delivers one content delta from the stream.
type StreamDeltaMsg struct {
	Content string
}

// StreamDoneMsg signals that the exchange finished, successfully or not.
type StreamDoneMsg struct {
	Result controller.Result
}

// StreamTickMsg drives batched rendering of buffered deltas.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// STORE MESSAGES
// =============================================================================

// StoreChangedMsg signals that the chat store mutated and views must refresh.
type StoreChangedMsg struct{}

// BackendStatusMsg reports whether the backend answered a health check.
type BackendStatusMsg struct {
	Reachable bool
	Err       error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// ErrorMsg displays a transient error banner.
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg dismisses the error banner.
type ClearErrorMsg struct{}

// SearchResultsMsg delivers archive search hits for display.
type SearchResultsMsg struct {
	Term string
	Hits []history.SearchHit
	Err  error
}

// ConfigReloadedMsg applies a config file change while running.
// Only display settings take effect live; the backend URL needs a restart.
type ConfigReloadedMsg struct {
	Theme string
}
