// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file holds the layout and rendering half of the model: sizing,
// conversation rendering, the sidebar, and the status line.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/ui/styles"
)

// streamCursor marks the live end of a streaming reply.
const streamCursor = "▌"

// =============================================================================
// LAYOUT
// =============================================================================

// resize recomputes the layout for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	if width <= 0 || height <= 0 {
		return
	}

	chrome := 3 // header, input, status line
	if m.errText != "" {
		chrome++
	}
	if m.showHelp {
		chrome += len(m.keys.FullHelp()) + 1 // help rows plus the slash command line
	}
	bodyHeight := height - chrome
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	contentWidth := width - sidebarWidth - 2
	if contentWidth < 20 {
		contentWidth = width // terminal too narrow, drop the sidebar
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = bodyHeight
	}

	// Markdown wrap width follows the pane, not the terminal.
	m.renderer = NewMarkdownRenderer(m.theme, contentWidth-2)
	m.input.Width = width - 4
	m.refreshViewport(false)
}

// sidebarVisible reports whether the terminal is wide enough for the chat list.
func (m *Model) sidebarVisible() bool {
	return m.width-sidebarWidth-2 >= 20
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// refreshViewport rebuilds the conversation pane from the active chat.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	active := m.store.Active()

	var b strings.Builder
	if active.IsEmpty() && m.state != stateStreaming {
		b.WriteString(styles.HelpText.Render("Ask about any Wikipedia topic, or type an expression like 2+2."))
	}

	for i := range active.Messages {
		b.WriteString(m.renderMessage(&active.Messages[i]))
		b.WriteString("\n\n")
	}

	if m.state == stateStreaming {
		b.WriteString(styles.BotLabel.Render(model.SenderBot.DisplayName()))
		b.WriteString("\n")
		b.WriteString(m.renderer.RenderPlain(m.streamingText))
		b.WriteString(streamCursor)
	}

	m.viewport.SetContent(b.String())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one conversation turn with its speaker tag and time.
func (m *Model) renderMessage(msg *model.Message) string {
	stamp := styles.Timestamp.Render(msg.Time().Format("15:04"))

	var label string
	var body string
	switch msg.Sender {
	case model.SenderBot:
		label = styles.BotLabel.Render(msg.Sender.DisplayName())
		body = m.renderer.Render(msg.Content)
	default:
		label = styles.UserLabel.Render(msg.Sender.DisplayName())
		body = msg.Content
	}
	return label + " " + stamp + "\n" + body
}

// showSearchResults replaces the conversation pane with archive search hits.
// Any store change re-renders the conversation over it.
func (m *Model) showSearchResults(msg SearchResultsMsg) {
	if !m.ready {
		return
	}
	if msg.Err != nil {
		m.errText = "search failed: " + msg.Err.Error()
		return
	}

	var b strings.Builder
	b.WriteString(styles.SidebarTitle.Render(fmt.Sprintf("Search: %q", msg.Term)))
	b.WriteString("\n\n")
	if len(msg.Hits) == 0 {
		b.WriteString(styles.HelpText.Render("No archived messages matched."))
	}
	for _, hit := range msg.Hits {
		title := styles.ChatItem.Render(hit.ChatTitle)
		sender := hit.Sender.DisplayName()
		preview := model.Message{Sender: hit.Sender, Content: hit.Content}.Preview(m.viewport.Width - 10)
		b.WriteString(fmt.Sprintf("%s\n  %s: %s\n\n", title, sender, preview))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
	m.statusText = fmt.Sprintf("%d result(s) for %q", len(msg.Hits), msg.Term)
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat interface.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	if m.sidebarVisible() {
		body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.viewport.View())
		sections = append(sections, body)
	} else {
		sections = append(sections, m.viewport.View())
	}

	if m.errText != "" {
		sections = append(sections, styles.ErrorBanner.Render("✗ "+m.errText))
	}
	sections = append(sections, m.input.View())
	sections = append(sections, m.renderStatus())
	if m.showHelp {
		sections = append(sections, m.renderFullHelp())
	}

	return strings.Join(sections, "\n")
}

// renderHeader renders the title row with the backend indicator.
func (m *Model) renderHeader() string {
	title := styles.SidebarTitle.Render("vikichat")

	dot := lipgloss.NewStyle().Foreground(styles.Rose).Render("●") + " offline"
	if m.backendUp {
		dot = lipgloss.NewStyle().Foreground(styles.Emerald).Render("●") + " connected"
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(dot) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + title + strings.Repeat(" ", gap) + dot
}

// renderSidebar renders the chat list with the active chat highlighted.
func (m *Model) renderSidebar() string {
	activeID := m.store.ActiveID()

	var b strings.Builder
	b.WriteString(styles.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	for i, c := range m.store.List() {
		marker := "  "
		if c.ID == activeID {
			marker = "› "
		}
		row := runewidth.Truncate(fmt.Sprintf("%s%d %s", marker, i+1, c.Title), sidebarWidth-2, "…")

		highlighted := c.ID == activeID
		if m.listFocused {
			highlighted = i == m.listIndex
		}
		if highlighted {
			b.WriteString(styles.ChatItemActive.Render(row))
		} else {
			b.WriteString(styles.ChatItem.Render(row))
		}
		b.WriteString("\n")
	}

	return styles.Sidebar.
		Width(sidebarWidth).
		Height(m.viewport.Height).
		Render(b.String())
}

// renderStatus renders the bottom status line: busy indicator or key hints.
func (m *Model) renderStatus() string {
	var left string
	if m.state == stateStreaming {
		left = m.spinner.View() + styles.StatusBusy.Render(" answering…")
	} else if m.statusText != "" {
		left = styles.HelpText.Render(m.statusText)
	} else {
		left = m.renderShortHelp()
	}
	return styles.StatusBar.Width(m.width).Render(" " + left)
}

// renderShortHelp renders the condensed key hints.
func (m *Model) renderShortHelp() string {
	var parts []string
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styles.HelpText.Render(strings.Join(parts, "  •  "))
}

// renderFullHelp renders the expanded help rows plus the slash commands.
func (m *Model) renderFullHelp() string {
	var rows []string
	for _, group := range m.keys.FullHelp() {
		var parts []string
		for _, binding := range group {
			h := binding.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
		rows = append(rows, styles.HelpText.Render(" "+strings.Join(parts, "   ")))
	}
	rows = append(rows, styles.HelpText.Render(" /new /clear /delete /switch <n> /search <term> /quit"))
	return strings.Join(rows, "\n")
}
