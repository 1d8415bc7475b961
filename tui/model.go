// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/peerwire-chat/peerwire/chat"
	"github.com/peerwire-chat/peerwire/client"
	"github.com/peerwire-chat/peerwire/session"
)

// refreshMsg is sent through the bubbletea loop whenever the client
// reports a change (log mutation, state transition, typing flag).
type refreshMsg struct{}

// Model is the bubbletea model for the chat screen.
type Model struct {
	client *client.Client
	theme  Theme

	viewport viewport.Model
	input    textarea.Model

	width  int
	height int
	ready  bool

	// replyTo arms the next send with a reply reference.
	replyTo string

	showDiagnostics bool
	notice          string
}

// NewModel creates the chat screen bound to a client.
func NewModel(c *client.Client, theme Theme) Model {
	input := textarea.New()
	input.Placeholder = "Message, or /help for commands"
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	return Model{
		client: c,
		theme:  theme,
		input:  input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chromeHeight := m.input.Height() + 3 // status bar, help line, composer border
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(1, msg.Height-chromeHeight))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(1, msg.Height-chromeHeight)
		}
		m.input.SetWidth(msg.Width - 2)
		m.refreshViewport()
		return m, nil

	case refreshMsg:
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.showDiagnostics = !m.showDiagnostics
			m.refreshViewport()
			return m, nil
		case tea.KeyEsc:
			m.input.Reset()
			m.replyTo = ""
			m.notice = ""
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp:
			m.viewport.HalfViewUp()
			return m, nil
		case tea.KeyPgDown:
			m.viewport.HalfViewDown()
			return m, nil
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.client.InputActivity()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles enter: a slash command or a text send.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.notice = ""

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	if _, err := m.client.SendText(text, m.replyTo); err != nil {
		m.notice = err.Error()
	}
	m.replyTo = ""
	m.refreshViewport()
	return m, nil
}

// runCommand dispatches a slash command.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	command, args := fields[0], fields[1:]

	switch command {
	case "/quit":
		return m, tea.Quit

	case "/help":
		m.notice = "/connect <id>  /disconnect  /send <path>  /reply <n>  /edit <n> <text>  /delete <n>  /save <n>  /clear  /quit"

	case "/connect":
		if len(args) != 1 {
			m.notice = "usage: /connect <identity>"
			break
		}
		if err := m.client.Connect(args[0]); err != nil {
			m.notice = err.Error()
		}

	case "/disconnect":
		if err := m.client.Disconnect(); err != nil {
			m.notice = err.Error()
		}

	case "/send":
		if len(args) != 1 {
			m.notice = "usage: /send <path>"
			break
		}
		m.sendFile(args[0])

	case "/reply":
		if message, ok := m.messageAt(args); ok {
			m.replyTo = message.ID
			m.notice = "replying — next message references #" + args[0]
		}

	case "/edit":
		if len(args) < 2 {
			m.notice = "usage: /edit <n> <new text>"
			break
		}
		if message, ok := m.messageAt(args[:1]); ok {
			if err := m.client.Edit(message.ID, strings.Join(args[1:], " ")); err != nil {
				m.notice = err.Error()
			}
		}

	case "/delete":
		if message, ok := m.messageAt(args); ok {
			if err := m.client.Delete(message.ID); err != nil {
				m.notice = err.Error()
			}
		}

	case "/save":
		if message, ok := m.messageAt(args); ok {
			if message.File == nil {
				m.notice = "not a file message"
				break
			}
			path, err := m.client.SaveFile(message.File.HandleID)
			if err != nil {
				m.notice = err.Error()
			} else {
				m.notice = "saved to " + path
			}
		}

	case "/clear":
		m.client.ClearConversation()

	default:
		m.notice = "unknown command " + command
	}

	m.refreshViewport()
	return m, nil
}

// messageAt resolves a 1-based transcript ordinal from command args.
func (m *Model) messageAt(args []string) (chat.Message, bool) {
	if len(args) < 1 {
		m.notice = "message number required"
		return chat.Message{}, false
	}
	n, err := strconv.Atoi(args[0])
	messages := m.client.Messages()
	if err != nil || n < 1 || n > len(messages) {
		m.notice = fmt.Sprintf("no message #%s", args[0])
		return chat.Message{}, false
	}
	return messages[n-1], true
}

// sendFile reads a local file and ships it whole.
func (m *Model) sendFile(path string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		m.notice = err.Error()
		return
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(payload)
	}
	if _, err := m.client.SendFile(filepath.Base(path), mimeType, payload); err != nil {
		m.notice = err.Error()
	}
}

// refreshViewport re-renders the transcript (or diagnostics pane) and
// follows the tail.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	if m.showDiagnostics {
		m.viewport.SetContent(renderDiagnostics(m.theme, m.client.Diagnostics()))
	} else {
		m.viewport.SetContent(renderTranscript(m.theme, m.client.Messages()))
	}
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting…"
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

// statusBar renders identity, connection state, peer, and the remote
// typing indicator.
func (m Model) statusBar() string {
	state := m.client.State()

	stateColor := m.theme.StateReady
	switch state {
	case session.StateConnected:
		stateColor = m.theme.StateConnected
	case session.StateError:
		stateColor = m.theme.StateError
	}

	parts := []string{
		lipgloss.NewStyle().Foreground(m.theme.StatusBarText).Render(m.client.Identity()),
		lipgloss.NewStyle().Foreground(stateColor).Render(state.String()),
	}
	if peer := m.client.Peer(); peer != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.RemoteSender).Render("⇄ "+peer))
	}
	if m.client.RemoteTyping() {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("typing…"))
	}
	if m.replyTo != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("replying"))
	}
	if m.notice != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(m.theme.DiagWarning).Render(m.notice))
	}
	return lipgloss.NewStyle().
		Foreground(m.theme.StatusBarText).
		Render(" " + strings.Join(parts, "  │  "))
}

func (m Model) helpLine() string {
	pane := "ctrl+l diagnostics"
	if m.showDiagnostics {
		pane = "ctrl+l conversation"
	}
	return lipgloss.NewStyle().Foreground(m.theme.HelpText).
		Render(" enter send · " + pane + " · esc clear · ctrl+c quit")
}

// Run starts the TUI and blocks until the user quits. Client changes
// are funneled into the program as refresh messages.
func Run(c *client.Client, theme Theme) error {
	program := tea.NewProgram(NewModel(c, theme), tea.WithAltScreen())
	c.SetNotify(func() {
		program.Send(refreshMsg{})
	})
	defer c.SetNotify(nil)

	_, err := program.Run()
	return err
}
