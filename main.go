// vikichat - a Wikipedia chatbot for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/cli"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/config"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/history"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/logging"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/server"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/storage"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/store"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/ui/chat"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/wiki"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	args, err := cli.Parse(os.Args[1:])
	if err != nil {
		cli.Fatalf("%v", err)
	}

	switch args.Command {
	case cli.CmdHelp:
		cli.PrintUsage()
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdServe:
		runServe(args)
	case cli.CmdSessions:
		runSessions(args)
	case cli.CmdChat:
		runChat(args)
	default:
		// Pipes and dumb terminals get the line-mode REPL.
		if args.Plain || !cli.IsTTY() {
			runChat(args)
			return
		}
		runTUI(args)
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app holds everything the client commands share.
type app struct {
	dir     string
	cfg     config.Config
	client  *chatapi.Client
	store   *store.ChatStore
	archive *history.Archive // nil when the archive cannot open
	close   func()
}

// setup resolves the data directory, loads config, starts logging, and
// wires the store to its persistence and backend notification.
func setup(args cli.Args) *app {
	dir := args.ConfigDir
	if dir == "" {
		var err error
		dir, err = storage.DefaultDir()
		if err != nil {
			cli.Fatalf("resolving data directory: %v", err)
		}
	}

	adapter, err := storage.NewAdapter(dir)
	if err != nil {
		cli.Fatalf("preparing data directory: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		cli.Fatalf("loading config: %v", err)
	}
	if args.ServerURL != "" {
		cfg.Backend.URL = args.ServerURL
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}

	_, closeLog := logging.Setup(logging.Options{
		Dir:        dir,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	client := chatapi.NewClient(chatapi.ClientConfig{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout(),
	})

	state, err := adapter.Load()
	if err != nil {
		cli.Fatalf("loading chats: %v", err)
	}
	chatStore := store.New(state, adapter, client)

	// A broken archive loses search, not chat.
	archive, err := history.Open(dir)
	if err != nil {
		slog.Warn("history archive unavailable", "error", err)
		archive = nil
	}

	return &app{
		dir:     dir,
		cfg:     cfg,
		client:  client,
		store:   chatStore,
		archive: archive,
		close: func() {
			if archive != nil {
				archive.Close()
			}
			closeLog()
		},
	}
}

// theme maps the UI config onto a renderer theme name.
func (a *app) theme() string {
	if !a.cfg.UI.Markdown {
		return "notty"
	}
	return a.cfg.UI.Theme
}

// =============================================================================
// COMMANDS
// =============================================================================

func runTUI(args cli.Args) {
	a := setup(args)
	defer a.close()

	model := chat.New(chat.Options{
		Store:   a.store,
		Client:  a.client,
		Archive: a.archive,
		Theme:   a.theme(),
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	a.store.SetOnChange(func() {
		program.Send(chat.StoreChangedMsg{})
	})

	// Config edits apply live to display settings.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go func() {
		err := config.Watch(watchCtx, a.dir, func(cfg config.Config) {
			theme := cfg.UI.Theme
			if !cfg.UI.Markdown {
				theme = "notty"
			}
			program.Send(chat.ConfigReloadedMsg{Theme: theme})
		})
		if err != nil {
			slog.Warn("config watcher stopped", "error", err)
		}
	}()

	if _, err := program.Run(); err != nil {
		cli.Fatalf("%v", err)
	}
}

func runChat(args cli.Args) {
	a := setup(args)
	defer a.close()

	err := cli.HandleChatCommand(cli.ChatDeps{
		Store:   a.store,
		Client:  a.client,
		Archive: a.archive,
		DataDir: a.dir,
		Quiet:   args.Quiet,
	})
	if err != nil {
		cli.Fatalf("%v", err)
	}
}

func runSessions(args cli.Args) {
	a := setup(args)
	defer a.close()

	if a.archive == nil {
		cli.Fatalf("history archive is not available")
	}
	if err := cli.HandleSessionsCommand(a.archive, args); err != nil {
		cli.Fatalf("%v", err)
	}
}

func runServe(args cli.Args) {
	dir := args.ConfigDir
	if dir == "" {
		var err error
		dir, err = storage.DefaultDir()
		if err != nil {
			cli.Fatalf("resolving data directory: %v", err)
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		cli.Fatalf("preparing data directory: %v", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		cli.Fatalf("loading config: %v", err)
	}
	_, closeLog := logging.Setup(logging.Options{
		Dir:        dir,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	defer closeLog()

	backend := server.New(server.Config{
		Addr:               cfg.Serve.Addr(),
		MaxChats:           cfg.Serve.MaxChats,
		RateLimitPerSecond: cfg.Serve.RateLimitPerSecond,
		Wiki: wiki.NewClient(wiki.Config{
			Language:  cfg.Wiki.Language,
			UserAgent: cfg.Wiki.UserAgent,
		}),
	})

	fmt.Printf("vikichat backend listening on http://%s\n", cfg.Serve.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- backend.Start() }()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			cli.Fatalf("%v", err)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}
}
