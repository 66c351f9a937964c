// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi is the HTTP client for the Vikipedi chatbot backend.
//
// The backend streams chat replies as newline-delimited frames of the form
// `data: {"type":...}` over POST /chat. StreamReader decodes that wire format
// into typed events, tolerating arbitrary chunk boundaries, skipping frames
// it cannot parse, and discarding any trailing partial line at EOF.
//
// Client wraps the endpoints: ChatStream (callback) / ChatStreamChan
// (channel) for streaming, plus DeleteChat, Reset, and Health. Errors are
// categorized via ClientError so callers can distinguish connection failures,
// timeouts, server rejections, and mid-stream error frames.
package chatapi
