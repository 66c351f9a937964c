// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the vikichat command-line interface: argument
// parsing, the line-mode chat REPL, archived session management, and
// terminal capability detection.
//
// The TUI itself lives in internal/ui; this package covers everything
// that runs without the alternate screen.
package cli
