// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the asynchronous commands the chat model issues:
// starting and draining reply streams, backend health checks, archive
// searches, and error banner expiry.
package chat

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/controller"
)

// =============================================================================
// STREAM SESSION
// =============================================================================

// streamSession carries one in-flight exchange between the controller
// goroutine and the Bubble Tea loop. The deltas channel closes when the
// exchange ends; the final result follows on done.
type streamSession struct {
	deltas chan string
	done   chan controller.Result
}

// startStream launches the exchange in a goroutine and returns the session
// plus the command that waits for its first event.
func (m *Model) startStream(content string) (*streamSession, tea.Cmd) {
	session := &streamSession{
		deltas: make(chan string, 64),
		done:   make(chan controller.Result, 1),
	}

	go func() {
		result := m.ctrl.SendMessage(context.Background(), content, func(delta string) {
			session.deltas <- delta
		})
		close(session.deltas)
		session.done <- result
	}()

	return session, tea.Batch(session.next, streamTickCmd())
}

// next blocks for the session's next event: a delta while streaming, the
// final result once the delta channel closes.
func (s *streamSession) next() tea.Msg {
	if delta, ok := <-s.deltas; ok {
		return StreamDeltaMsg{Content: delta}
	}
	return StreamDoneMsg{Result: <-s.done}
}

// =============================================================================
// SUPPORT COMMANDS
// =============================================================================

// healthCheckCmd probes the backend once.
func (m *Model) healthCheckCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := client.Health(ctx)
		return BackendStatusMsg{Reachable: err == nil, Err: err}
	}
}

// searchCmd runs an archive search off the UI loop.
func (m *Model) searchCmd(term string) tea.Cmd {
	archive := m.archive
	return func() tea.Msg {
		if archive == nil {
			return SearchResultsMsg{Term: term}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hits, err := archive.Search(ctx, term, 20)
		return SearchResultsMsg{Term: term, Hits: hits, Err: err}
	}
}

// archiveActiveCmd snapshots the active chat into the history archive so
// committed exchanges are searchable without waiting for a delete.
func (m *Model) archiveActiveCmd() tea.Cmd {
	if m.archive == nil {
		return nil
	}
	archive := m.archive
	snapshot := m.store.Active()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := archive.ArchiveChat(ctx, snapshot); err != nil {
			slog.Warn("archiving chat failed", "chat_id", snapshot.ID, "error", err)
		}
		return nil
	}
}

// clearErrorCmd expires the error banner after a few seconds.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearErrorMsg{}
	})
}
