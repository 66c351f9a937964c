// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the vikichat TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Cyan - brand color, user highlights
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - bot messages, selections
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Emerald - success states, connected indicator
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - warnings, busy indicator
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Surface colors
var (
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
)

// Text colors
var (
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// =============================================================================
// SHARED STYLES
// =============================================================================

// UserLabel styles the "You" speaker tag.
var UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

// BotLabel styles the "Bot" speaker tag.
var BotLabel = lipgloss.NewStyle().Foreground(Purple).Bold(true)

// Timestamp styles message times.
var Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

// ErrorBanner styles the transient error line.
var ErrorBanner = lipgloss.NewStyle().Foreground(Rose).Bold(true)

// StatusBar styles the bottom status line.
var StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim)

// StatusBusy styles the in-flight indicator inside the status bar.
var StatusBusy = lipgloss.NewStyle().Foreground(Amber).Bold(true)

// Sidebar styles the chat list pane.
var Sidebar = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderRight(true).
	BorderForeground(Overlay).
	PaddingRight(1)

// SidebarTitle styles the chat list heading.
var SidebarTitle = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)

// ChatItem styles an inactive chat row in the sidebar.
var ChatItem = lipgloss.NewStyle().Foreground(TextSecondary)

// ChatItemActive styles the selected chat row.
var ChatItemActive = lipgloss.NewStyle().
	Foreground(TextInverse).
	Background(Purple).
	Bold(true)

// InputPrompt styles the input prompt marker.
var InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)

// HelpText styles the key hint line.
var HelpText = lipgloss.NewStyle().Foreground(TextMuted)
