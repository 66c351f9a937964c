// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide structured logger.
//
// vikichat owns the terminal while the TUI runs, so logs never go to stdout
// or stderr. Everything is written as JSON lines to a rolling file under the
// data directory, rotated by size.
package logging

import (
	"log/slog"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger setup.
type Options struct {
	// Dir is the directory the log file lives in.
	Dir string

	// Level is the minimum level as a string: debug, info, warn, error.
	// Unknown values fall back to info.
	Level string

	// MaxSizeMB caps the log file size before rotation. Zero means 10.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep. Zero means 3.
	MaxBackups int
}

const logFileName = "vikichat.log"

// Setup installs the default slog logger writing JSON lines to a rolling
// file. It returns the file path and a close function for the underlying
// writer.
func Setup(opts Options) (string, func() error) {
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}

	path := filepath.Join(opts.Dir, logFileName)
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	slog.SetDefault(slog.New(handler))

	return path, writer.Close
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
