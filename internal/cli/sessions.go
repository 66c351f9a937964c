// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Archived conversation management for the vikichat CLI.
//
// Handles the "vikichat sessions" command:
//   vikichat sessions list          List archived conversations
//   vikichat sessions search TERM   Search archived messages
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/history"
)

// HandleSessionsCommand handles the "sessions" command.
func HandleSessionsCommand(archive *history.Archive, args Args) error {
	switch args.Subcommand {
	case "", "list":
		return listSessions(archive)
	case "search":
		if strings.TrimSpace(args.Query) == "" {
			return fmt.Errorf("usage: vikichat sessions search <term>")
		}
		return searchSessions(archive, args.Query)
	default:
		return fmt.Errorf("unknown sessions subcommand: %s (try list or search)", args.Subcommand)
	}
}

func listSessions(archive *history.Archive) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chats, err := archive.List(ctx, 100)
	if err != nil {
		return fmt.Errorf("listing archive: %w", err)
	}
	if len(chats) == 0 {
		fmt.Println("No archived conversations. Deleted chats are archived automatically.")
		return nil
	}

	fmt.Printf("%-19s  %-8s  %s\n", "ARCHIVED", "MESSAGES", "TITLE")
	for _, c := range chats {
		stamp := time.UnixMilli(c.ArchivedAt).Format("2006-01-02 15:04")
		fmt.Printf("%-19s  %-8d  %s\n", stamp, c.MessageCount, c.Title)
	}
	return nil
}

func searchSessions(archive *history.Archive, term string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hits, err := archive.Search(ctx, term, 50)
	if err != nil {
		return fmt.Errorf("searching archive: %w", err)
	}
	if len(hits) == 0 {
		fmt.Printf("No archived messages matched %q.\n", term)
		return nil
	}

	for _, hit := range hits {
		stamp := time.UnixMilli(hit.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("%s  [%s] %s: %s\n", stamp, hit.ChatTitle, hit.Sender.DisplayName(), hit.Content)
	}
	return nil
}
