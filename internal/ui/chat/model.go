// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/controller"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/history"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/store"
	"github.com/HSCN809/vikipedi-WebChatbot/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// viewState tracks what the main pane is doing.
type viewState int

const (
	stateIdle viewState = iota
	stateStreaming
)

const sidebarWidth = 26

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	store   *store.ChatStore
	ctrl    *controller.Controller
	client  *chatapi.Client
	archive *history.Archive

	keys     KeyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *MarkdownRenderer
	buffer   *StreamingBuffer

	state         viewState
	session       *streamSession
	streamingText string

	listFocused bool
	listIndex   int

	width, height int
	ready         bool
	showHelp      bool
	errText       string
	statusText    string
	backendUp     bool
	theme         string
}

// Options configures the chat model.
type Options struct {
	Store   *store.ChatStore
	Client  *chatapi.Client
	Archive *history.Archive // may be nil; disables /search
	Theme   string
}

// New creates the chat model.
func New(opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message, or /help for commands"
	input.Prompt = styles.InputPrompt.Render("> ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	return &Model{
		store:    opts.Store,
		ctrl:     controller.New(opts.Store, opts.Client),
		client:   opts.Client,
		archive:  opts.Archive,
		keys:     DefaultKeyMap(),
		input:    input,
		spinner:  sp,
		buffer:   NewStreamingBuffer(),
		renderer: NewMarkdownRenderer(opts.Theme, 80),
		theme:    opts.Theme,
	}
}

// Init starts the spinner and the initial backend probe.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.healthCheckCmd(), textinput.Blink)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamDeltaMsg:
		m.buffer.Write(msg.Content)
		if m.session != nil {
			return m, m.session.next
		}
		return m, nil

	case StreamTickMsg:
		if m.state != stateStreaming {
			return m, nil
		}
		if content, ok := m.buffer.Flush(); ok {
			m.streamingText += content
			m.refreshViewport(true)
		}
		return m, streamTickCmd()

	case StreamDoneMsg:
		return m.finishStream(msg.Result)

	case StoreChangedMsg:
		m.refreshViewport(true)
		return m, nil

	case BackendStatusMsg:
		m.backendUp = msg.Reachable
		return m, nil

	case ErrorMsg:
		m.errText = chatapi.UserMessage(msg.Err)
		return m, clearErrorCmd()

	case ClearErrorMsg:
		m.errText = ""
		return m, nil

	case SearchResultsMsg:
		m.showSearchResults(msg)
		return m, nil

	case ConfigReloadedMsg:
		if msg.Theme != m.theme {
			m.theme = msg.Theme
			m.resize(m.width, m.height)
		}
		return m, nil
	}

	return m, nil
}

// updateKeys handles keyboard input.
func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.FocusList):
		m.toggleListFocus()
		return m, nil
	}

	if m.listFocused {
		return m, m.updateListKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.runNewChat()

	case key.Matches(msg, m.keys.NextChat):
		return m, m.cycleChat(1)

	case key.Matches(msg, m.keys.PrevChat):
		return m, m.cycleChat(-1)

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// toggleListFocus moves keyboard focus between the input and the chat list.
func (m *Model) toggleListFocus() {
	m.listFocused = !m.listFocused
	if m.listFocused {
		m.input.Blur()
		m.listIndex = m.activeIndex()
	} else {
		m.input.Focus()
	}
}

// activeIndex returns the list position of the active chat.
func (m *Model) activeIndex() int {
	activeID := m.store.ActiveID()
	for i, c := range m.store.List() {
		if c.ID == activeID {
			return i
		}
	}
	return 0
}

// updateListKeys handles keys while the chat list is focused.
func (m *Model) updateListKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "esc":
		m.toggleListFocus()

	case key.Matches(msg, m.keys.Up):
		if m.listIndex > 0 {
			m.listIndex--
		}

	case key.Matches(msg, m.keys.Down):
		if m.listIndex < m.store.Count()-1 {
			m.listIndex++
		}

	case key.Matches(msg, m.keys.Submit):
		chats := m.store.List()
		if m.listIndex >= 0 && m.listIndex < len(chats) {
			if err := m.store.SwitchChat(chats[m.listIndex].ID); err != nil {
				return m.reportError(err)
			}
		}
		m.toggleListFocus()
		m.refreshViewport(true)
	}
	return nil
}

// submit dispatches the input line: slash commands run immediately,
// anything else becomes a chat message.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}

	if strings.HasPrefix(content, "/") {
		m.input.SetValue("")
		return m, m.runSlashCommand(content)
	}

	if m.state == stateStreaming {
		m.errText = "Still answering the previous message."
		return m, clearErrorCmd()
	}

	m.input.SetValue("")
	m.state = stateStreaming
	m.streamingText = ""
	m.buffer.Reset()

	session, cmd := m.startStream(content)
	m.session = session
	return m, cmd
}

// finishStream transitions back to idle no matter how the stream ended.
func (m *Model) finishStream(result controller.Result) (tea.Model, tea.Cmd) {
	// The streaming state always exits here, even on failure.
	m.state = stateIdle
	m.session = nil
	m.streamingText = ""
	m.buffer.Reset()
	m.refreshViewport(true)

	if result.Err != nil {
		m.errText = chatapi.UserMessage(result.Err)
		return m, clearErrorCmd()
	}
	m.statusText = fmt.Sprintf("answered in %s", result.Duration.Round(10*time.Millisecond))
	return m, m.archiveActiveCmd()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runSlashCommand executes a /command line.
func (m *Model) runSlashCommand(line string) tea.Cmd {
	parts := strings.Fields(line)
	command, args := parts[0], parts[1:]

	switch command {
	case "/new":
		return m.runNewChat()

	case "/clear":
		m.store.ClearActive(context.Background())
		m.refreshViewport(true)
		return nil

	case "/delete":
		return m.runDeleteChat()

	case "/switch":
		if len(args) != 1 {
			m.errText = "usage: /switch <number>"
			return clearErrorCmd()
		}
		return m.runSwitchChat(args[0])

	case "/search":
		if len(args) == 0 {
			m.errText = "usage: /search <term>"
			return clearErrorCmd()
		}
		if m.archive == nil {
			m.errText = "history archive is not available"
			return clearErrorCmd()
		}
		return m.searchCmd(strings.Join(args, " "))

	case "/help":
		m.showHelp = !m.showHelp
		m.resize(m.width, m.height)
		return nil

	case "/quit":
		return tea.Quit

	default:
		m.errText = fmt.Sprintf("unknown command %s (try /help)", command)
		return clearErrorCmd()
	}
}

func (m *Model) runNewChat() tea.Cmd {
	if m.state == stateStreaming {
		m.errText = "Finish the current reply first."
		return clearErrorCmd()
	}
	m.store.CreateChat()
	m.refreshViewport(true)
	return nil
}

func (m *Model) runDeleteChat() tea.Cmd {
	if m.state == stateStreaming {
		m.errText = "Finish the current reply first."
		return clearErrorCmd()
	}
	active := m.store.Active()

	// Deleted conversations stay searchable through the archive.
	if m.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.archive.ArchiveChat(ctx, active); err != nil {
			return m.reportError(err)
		}
	}
	m.store.DeleteChat(context.Background(), active.ID)
	m.refreshViewport(true)
	return nil
}

func (m *Model) runSwitchChat(arg string) tea.Cmd {
	index, err := strconv.Atoi(arg)
	chats := m.store.List()
	if err != nil || index < 1 || index > len(chats) {
		m.errText = fmt.Sprintf("no chat numbered %q", arg)
		return clearErrorCmd()
	}
	if err := m.store.SwitchChat(chats[index-1].ID); err != nil {
		return m.reportError(err)
	}
	m.refreshViewport(true)
	return nil
}

// cycleChat moves the active chat forward or back through the list.
func (m *Model) cycleChat(step int) tea.Cmd {
	if m.state == stateStreaming {
		return nil
	}
	chats := m.store.List()
	if len(chats) < 2 {
		return nil
	}
	activeID := m.store.ActiveID()
	for i, c := range chats {
		if c.ID == activeID {
			next := (i + step + len(chats)) % len(chats)
			if err := m.store.SwitchChat(chats[next].ID); err != nil {
				return m.reportError(err)
			}
			break
		}
	}
	m.refreshViewport(true)
	return nil
}

func (m *Model) reportError(err error) tea.Cmd {
	m.errText = chatapi.UserMessage(err)
	return clearErrorCmd()
}
