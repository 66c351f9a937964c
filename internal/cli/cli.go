// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for vikichat.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdServe
	CmdSessions
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Command    Command
	Subcommand string
	Query      string

	// Global flags
	ServerURL string // --server, overrides config
	Theme     string // --theme, overrides config
	ConfigDir string // --config-dir, overrides the default location
	Quiet     bool
	Plain     bool // force the line-mode REPL even on a full terminal

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `vikichat - Wikipedia chatbot for the terminal

Vikichat answers questions from Turkish Wikipedia and evaluates
arithmetic expressions, in a multi-chat terminal interface.

Usage:
  vikichat                    Start the TUI (default)
  vikichat chat               Line-mode chat (no alternate screen)
  vikichat serve              Run the local answer backend
  vikichat sessions list      List archived conversations
  vikichat sessions search Q  Search archived messages
  vikichat version            Show version information

Flags:
  --server URL      Backend URL (default http://127.0.0.1:5000)
  --theme NAME      Markdown theme: auto, dark, light, notty
  --config-dir DIR  Use an alternate config/data directory
  --plain           Use line-mode chat even on a full terminal
  -q, --quiet       Minimal output
  -h, --help        Show this help
  -v, --version     Show version

Interactive commands (during chat):
  /new              Start a new conversation
  /clear            Clear the current conversation
  /delete           Archive and delete the current conversation
  /switch N         Switch to conversation N
  /search TERM      Search archived conversations
  /help             Show commands
  /quit             Exit

Environment:
  VIKICHAT_SERVER_URL   Backend URL (same as --server)
  VIKICHAT_THEME        Markdown theme (same as --theme)
  VIKICHAT_LOG_LEVEL    Log level: debug, info, warn, error
`

// Parse parses command-line arguments into an Args struct.
func Parse(argv []string) (Args, error) {
	args := Args{Command: CmdTUI}

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "-h" || arg == "--help" || arg == "help":
			args.Command = CmdHelp
			return args, nil

		case arg == "-v" || arg == "--version" || arg == "version":
			args.Command = CmdVersion
			return args, nil

		case arg == "-q" || arg == "--quiet":
			args.Quiet = true

		case arg == "--plain":
			args.Plain = true

		case arg == "--server":
			value, err := flagValue(argv, i, arg)
			if err != nil {
				return args, err
			}
			args.ServerURL = value
			i++

		case arg == "--theme":
			value, err := flagValue(argv, i, arg)
			if err != nil {
				return args, err
			}
			args.Theme = value
			i++

		case arg == "--config-dir":
			value, err := flagValue(argv, i, arg)
			if err != nil {
				return args, err
			}
			args.ConfigDir = value
			i++

		case strings.HasPrefix(arg, "-"):
			return args, fmt.Errorf("unknown flag: %s (try --help)", arg)

		default:
			return parseCommand(args, argv[i:])
		}
		i++
	}

	return args, nil
}

// parseCommand parses the positional command and its arguments.
func parseCommand(args Args, rest []string) (Args, error) {
	switch rest[0] {
	case "chat":
		args.Command = CmdChat
	case "serve":
		args.Command = CmdServe
	case "sessions", "session":
		args.Command = CmdSessions
		if len(rest) > 1 {
			args.Subcommand = rest[1]
			args.Query = strings.Join(rest[2:], " ")
		}
	default:
		return args, fmt.Errorf("unknown command: %s (try --help)", rest[0])
	}
	args.Raw = rest[1:]
	return args, nil
}

// flagValue returns the value following a flag, erroring when it is missing.
func flagValue(argv []string, i int, flag string) (string, error) {
	if i+1 >= len(argv) {
		return "", fmt.Errorf("%s requires a value", flag)
	}
	return argv[i+1], nil
}

// PrintUsage writes the help text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("vikichat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// Fatalf prints an error to stderr and exits.
func Fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "vikichat: "+format+"\n", a...)
	os.Exit(1)
}
