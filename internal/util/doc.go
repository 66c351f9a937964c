// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for vikichat.
//
// It contains:
//   - AtomicWriteFile: crash-safe file writes (temp file + fsync + rename)
//   - Rune- and width-aware string truncation and padding for the TUI
//
// The package has no dependencies on other vikichat packages.
package util
