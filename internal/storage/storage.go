// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the chat collection as a single JSON document.
//
// The whole store state is written on every save. Writes go through an
// atomic temp-file rename so a crash mid-write leaves the previous state
// intact. A missing or unreadable file degrades to an empty state so the
// application always starts.
package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/util"
)

const (
	stateFileName = "chats.json"
	dirPerm       = 0700
)

// Adapter reads and writes the persisted chat state.
type Adapter struct {
	dir  string
	path string
}

// NewAdapter creates an adapter rooted at dir, creating the directory when
// missing.
func NewAdapter(dir string) (*Adapter, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Adapter{
		dir:  dir,
		path: filepath.Join(dir, stateFileName),
	}, nil
}

// DefaultDir returns the per-user data directory (~/.vikichat).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".vikichat"), nil
}

// Dir returns the data directory the adapter writes into.
func (a *Adapter) Dir() string {
	return a.dir
}

// Path returns the state file path.
func (a *Adapter) Path() string {
	return a.path
}

// Load reads the persisted state. A missing file yields an empty state and
// no error; a corrupt file is logged and likewise yields an empty state, so
// a damaged disk never blocks startup.
func (a *Adapter) Load() (model.State, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.State{}, nil
		}
		slog.Warn("state file unreadable, starting fresh", "path", a.path, "error", err)
		return model.State{}, nil
	}

	var state model.State
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("state file corrupt, starting fresh", "path", a.path, "error", err)
		return model.State{}, nil
	}
	return state, nil
}

// Save writes the full state atomically.
func (a *Adapter) Save(state model.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := util.AtomicWriteFile(a.path, data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}
