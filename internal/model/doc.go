// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core data types shared across vikichat:
//
//   - Message: one turn in a conversation, authored by the user or the bot
//   - Chat: an ordered message sequence plus metadata (id, title, creation time)
//   - State: the persisted collection shape (chats + active-chat pointer)
//
// Timestamps are stored as epoch milliseconds so the persisted JSON matches
// the wire and storage formats exactly. Chat titles derive once from the
// first user message and are never re-derived afterwards.
package model
