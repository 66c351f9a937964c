// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history archives conversations to a local SQLite database.
//
// The JSON state file holds only live chats; deleted ones are copied here
// first so past conversations stay searchable. The sessions command reads
// this archive.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/model"
)

const dbFileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	archived_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	chat_id   TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	sender    TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	PRIMARY KEY (chat_id, position)
);
CREATE INDEX IF NOT EXISTS idx_messages_content ON messages(content);
`

// Archive is the conversation archive. Safe for concurrent use; SQLite
// serializes writers internally.
type Archive struct {
	db *sql.DB
}

// ArchivedChat is a chat row from the archive.
type ArchivedChat struct {
	ID           string
	Title        string
	CreatedAt    int64
	ArchivedAt   int64
	MessageCount int
}

// SearchHit is one message matched by a search.
type SearchHit struct {
	ChatID    string
	ChatTitle string
	Sender    model.Sender
	Content   string
	Timestamp int64
}

// Open opens (creating if needed) the archive in dir.
func Open(dir string) (*Archive, error) {
	path := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// ArchiveChat copies a chat and its messages into the archive. Archiving the
// same chat again replaces the previous copy. Empty chats are skipped: an
// abandoned blank chat is not history worth keeping.
func (a *Archive) ArchiveChat(ctx context.Context, chat *model.Chat) error {
	if chat.IsEmpty() {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting archive transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chats (id, title, created_at, archived_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, archived_at = excluded.archived_at`,
		chat.ID, chat.Title, chat.CreatedAt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("archiving chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chat.ID); err != nil {
		return fmt.Errorf("clearing old messages: %w", err)
	}
	for i, msg := range chat.Messages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (chat_id, position, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
			chat.ID, i, msg.Sender.String(), msg.Content, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("archiving message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// List returns archived chats, most recently archived first.
func (a *Archive) List(ctx context.Context, limit int) ([]ArchivedChat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.created_at, c.archived_at, COUNT(m.chat_id)
		 FROM chats c LEFT JOIN messages m ON m.chat_id = c.id
		 GROUP BY c.id ORDER BY c.archived_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	defer rows.Close()

	var chats []ArchivedChat
	for rows.Next() {
		var c ArchivedChat
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.ArchivedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Search finds messages containing the term, case-insensitively, newest
// first.
func (a *Archive) Search(ctx context.Context, term string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT m.chat_id, c.title, m.sender, m.content, m.timestamp
		 FROM messages m JOIN chats c ON c.id = m.chat_id
		 WHERE m.content LIKE ? ESCAPE '\'
		 ORDER BY m.timestamp DESC LIMIT ?`,
		"%"+escapeLike(term)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		var sender string
		if err := rows.Scan(&h.ChatID, &h.ChatTitle, &sender, &h.Content, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		h.Sender = model.Sender(sender)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Get returns one archived chat rebuilt as a model.Chat, or nil.
func (a *Archive) Get(ctx context.Context, id string) (*model.Chat, error) {
	chat := &model.Chat{ID: id}
	err := a.db.QueryRowContext(ctx,
		`SELECT title, created_at FROM chats WHERE id = ?`, id).
		Scan(&chat.Title, &chat.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading archived chat: %w", err)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT sender, content, timestamp FROM messages WHERE chat_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading archived messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var sender string
		if err := rows.Scan(&sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.Sender = model.Sender(sender)
		chat.Messages = append(chat.Messages, msg)
	}
	return chat, rows.Err()
}

// escapeLike escapes LIKE wildcards in a user-supplied term.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
