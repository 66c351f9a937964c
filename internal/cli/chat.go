// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat command handler for the vikichat CLI.
//
// USABILITY: Input history and line editing for better CLI experience
//
// Handles the "vikichat chat" command: a plain REPL without the alternate
// screen, for dumb terminals, pipes, and users who prefer scrollback.
//
// Interactive commands (during chat):
//   /new               Start a new conversation
//   /clear             Clear the current conversation
//   /delete            Archive and delete the current conversation
//   /switch N          Switch to conversation N
//   /chats             List conversations
//   /search TERM       Search archived conversations
//   /help, /h          Show available commands
//   /quit, /q          Exit chat
//   Ctrl+C             Abort the current line
//   Ctrl+D             Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/controller"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/history"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/store"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle  = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	errorStyle   = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

const historyFileName = "chat_history"

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history persists under dataDir.
func NewChatCLI(dataDir string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dataDir, historyFileName),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// ChatDeps carries the wired application pieces into the REPL.
type ChatDeps struct {
	Store   *store.ChatStore
	Client  *chatapi.Client
	Archive *history.Archive // may be nil; disables /search and /delete archiving
	DataDir string
	Quiet   bool
}

// HandleChatCommand runs the line-mode chat REPL.
func HandleChatCommand(deps ChatDeps) error {
	ctrl := controller.New(deps.Store, deps.Client)
	input := NewChatCLI(deps.DataDir)
	defer input.Close()

	if !deps.Quiet {
		printWelcome(deps)
	}

	for {
		line, err := input.ReadInput(promptStyle.Render("you> "))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue // Ctrl+C drops the line, not the session
		}
		if err != nil {
			fmt.Println()
			return nil // Ctrl+D
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := runReplCommand(deps, line); quit {
				return nil
			}
			continue
		}

		sendAndPrint(deps, ctrl, line)
	}
}

// sendAndPrint runs one exchange, printing deltas as they arrive.
func sendAndPrint(deps ChatDeps, ctrl *controller.Controller, content string) {
	fmt.Print(botStyle.Render("bot> "))

	result := ctrl.SendMessage(context.Background(), content, func(delta string) {
		fmt.Print(delta)
	})
	fmt.Println()

	if result.Err != nil {
		fmt.Println(errorStyle.Render("✗ " + chatapi.UserMessage(result.Err)))
		return
	}
	// Committed exchanges become searchable immediately.
	if deps.Archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Archive.ArchiveChat(ctx, deps.Store.Active()); err != nil {
			slog.Warn("archiving chat failed", "error", err)
		}
	}
}

// runReplCommand executes a /command and reports whether the REPL should exit.
func runReplCommand(deps ChatDeps, line string) (quit bool) {
	parts := strings.Fields(line)
	command, args := parts[0], parts[1:]

	switch command {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		printReplHelp()

	case "/new":
		created := deps.Store.CreateChat()
		fmt.Println(infoStyle.Render("started " + strconv.Quote(created.Title)))

	case "/clear":
		deps.Store.ClearActive(context.Background())
		fmt.Println(infoStyle.Render("conversation cleared"))

	case "/delete":
		deleteActive(deps)

	case "/chats":
		printChats(deps.Store)

	case "/switch":
		switchChat(deps.Store, args)

	case "/search":
		searchArchive(deps.Archive, strings.Join(args, " "))

	default:
		fmt.Println(errorStyle.Render("unknown command " + command + " (try /help)"))
	}
	return false
}

func deleteActive(deps ChatDeps) {
	active := deps.Store.Active()
	if deps.Archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Archive.ArchiveChat(ctx, active); err != nil {
			printError(err)
			return
		}
	}
	deps.Store.DeleteChat(context.Background(), active.ID)
	fmt.Println(infoStyle.Render("deleted " + strconv.Quote(active.Title)))
}

func printChats(s *store.ChatStore) {
	activeID := s.ActiveID()
	for i, c := range s.List() {
		marker := "  "
		if c.ID == activeID {
			marker = "* "
		}
		fmt.Printf("%s%d  %s (%d messages)\n", marker, i+1, c.Title, c.MessageCount())
	}
}

func switchChat(s *store.ChatStore, args []string) {
	if len(args) != 1 {
		fmt.Println(errorStyle.Render("usage: /switch <number>"))
		return
	}
	chats := s.List()
	index, err := strconv.Atoi(args[0])
	if err != nil || index < 1 || index > len(chats) {
		fmt.Println(errorStyle.Render("no chat numbered " + strconv.Quote(args[0])))
		return
	}
	if err := s.SwitchChat(chats[index-1].ID); err != nil {
		printError(err)
		return
	}
	fmt.Println(infoStyle.Render("switched to " + strconv.Quote(chats[index-1].Title)))
}

func searchArchive(archive *history.Archive, term string) {
	if archive == nil {
		fmt.Println(errorStyle.Render("history archive is not available"))
		return
	}
	if strings.TrimSpace(term) == "" {
		fmt.Println(errorStyle.Render("usage: /search <term>"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hits, err := archive.Search(ctx, term, 20)
	if err != nil {
		printError(err)
		return
	}
	if len(hits) == 0 {
		fmt.Println(infoStyle.Render("no archived messages matched"))
		return
	}
	for _, hit := range hits {
		stamp := time.UnixMilli(hit.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("%s  [%s] %s: %s\n", stamp, hit.ChatTitle, hit.Sender.DisplayName(), hit.Content)
	}
}

func printWelcome(deps ChatDeps) {
	fmt.Println(welcomeStyle.Render("vikichat " + Version))
	fmt.Println(infoStyle.Render("Ask about any Wikipedia topic, or type an expression like 2+2."))
	fmt.Println(infoStyle.Render("Commands: /help  Exit: /quit or Ctrl+D"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := deps.Client.Health(ctx); err != nil {
		fmt.Println(errorStyle.Render("✗ backend unreachable — start it with: vikichat serve"))
	}
	fmt.Println()
}

func printReplHelp() {
	fmt.Println(infoStyle.Render(`  /new             start a new conversation
  /clear           clear the current conversation
  /delete          archive and delete the current conversation
  /chats           list conversations
  /switch N        switch to conversation N
  /search TERM     search archived conversations
  /quit            exit`))
}

func printError(err error) {
	fmt.Println(errorStyle.Render("✗ " + chatapi.UserMessage(err)))
}
