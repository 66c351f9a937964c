// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"testing"
)

// =============================================================================
// MARKDOWN RENDERER TESTS
// =============================================================================

func TestMarkdownRendererNotty(t *testing.T) {
	mr := NewMarkdownRenderer("notty", 80)

	if mr.Enabled() {
		t.Error("notty renderer should not enable glamour")
	}
	// Without glamour the content must still come through intact.
	out := mr.Render("## Ankara\n\nBaşkent.")
	if !strings.Contains(out, "Ankara") || !strings.Contains(out, "Başkent") {
		t.Errorf("notty render lost content: %q", out)
	}
}

func TestMarkdownRendererKeepsContent(t *testing.T) {
	mr := NewMarkdownRenderer("dark", 80)

	out := mr.Render("Mustafa Kemal **Atatürk**")
	if !strings.Contains(out, "Atatürk") {
		t.Errorf("render lost content: %q", out)
	}
}

func TestMarkdownRendererZeroWidthDefaults(t *testing.T) {
	mr := NewMarkdownRenderer("dark", 0)

	if mr.width != 80 {
		t.Errorf("Expected default width 80, got %d", mr.width)
	}
}

func TestHighlightCodeKeepsSource(t *testing.T) {
	code := `fmt.Println("merhaba")`

	out := highlightCode(code, "go")
	if !strings.Contains(out, "Println") {
		t.Errorf("highlighted output lost source text: %q", out)
	}

	// Unknown language falls back rather than erroring.
	out = highlightCode(code, "nosuchlang")
	if !strings.Contains(out, "Println") {
		t.Errorf("fallback output lost source text: %q", out)
	}
}
