// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType discriminates the frames the backend streams over /chat.
type EventType string

const (
	// EventContent carries an incremental text delta of the bot reply.
	EventContent EventType = "content"

	// EventError carries a backend error; it terminates the stream.
	EventError EventType = "error"

	// EventEnd signals graceful completion of the stream.
	EventEnd EventType = "end"
)

// Event is one decoded stream frame. Exactly one of Content and Error is
// meaningful, selected by Type; an end event carries neither.
type Event struct {
	Type    EventType
	Content string
	Error   string
}

// eventFrame is the raw JSON shape of a `data:` line. The backend also emits
// auxiliary frames (function_call, function_result) whose discriminants are
// unknown to this client; the decoder skips them.
type eventFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id"`
}

// ChatRef is the body of POST /delete_chat and POST /reset.
type ChatRef struct {
	ChatID string `json:"chat_id"`
}

// StatusResponse is the JSON body of non-streaming endpoints.
type StatusResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
