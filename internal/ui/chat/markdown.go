// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file renders bot replies. Finished replies go through glamour for
// full markdown; the still-streaming tail uses a cheaper plain path with
// chroma-highlighted code fences, since re-running glamour on every frame
// is too expensive.
package chat

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders bot replies for terminal display.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	enabled  bool
}

// NewMarkdownRenderer creates a renderer for the given theme ("auto",
// "dark", "light", or "notty") and wrap width. A glamour setup failure
// degrades to plain rendering rather than erroring.
func NewMarkdownRenderer(theme string, width int) *MarkdownRenderer {
	if width <= 0 {
		width = 80
	}
	mr := &MarkdownRenderer{width: width}

	var styleOpt glamour.TermRendererOption
	switch theme {
	case "dark":
		styleOpt = glamour.WithStandardStyle("dark")
	case "light":
		styleOpt = glamour.WithStandardStyle("light")
	case "notty":
		return mr
	default:
		styleOpt = glamour.WithAutoStyle()
	}

	renderer, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return mr
	}
	mr.renderer = renderer
	mr.enabled = true
	return mr
}

// Enabled reports whether full markdown rendering is available.
func (mr *MarkdownRenderer) Enabled() bool {
	return mr.enabled
}

// Render renders a completed reply. Falls back to the plain path when
// glamour is unavailable or fails on this input.
func (mr *MarkdownRenderer) Render(content string) string {
	if mr.enabled {
		if out, err := mr.renderer.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return mr.RenderPlain(content)
}

// RenderPlain renders content without glamour: text passes through as-is,
// fenced code blocks get chroma syntax highlighting when the terminal has
// color. Used for the streaming tail and as the notty path.
func (mr *MarkdownRenderer) RenderPlain(content string) string {
	if termenv.ColorProfile() == termenv.Ascii {
		return content
	}

	var out []string
	var code []string
	var language string
	inFence := false

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "```"):
			if inFence {
				out = append(out, highlightCode(strings.Join(code, "\n"), language))
				code, language, inFence = nil, "", false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inFence = true
			}
		case inFence:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}
	// An unclosed fence is rendered too: the stream may close it later.
	if inFence && len(code) > 0 {
		out = append(out, highlightCode(strings.Join(code, "\n"), language))
	}
	return strings.Join(out, "\n")
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies chroma syntax highlighting for terminal output,
// returning the input unchanged when highlighting fails.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
