// ABOUTME: Bubble Tea model for the chat screen: sidebar, message panel, input, status bar
// ABOUTME: Renders controller and directory snapshots; user gestures call their methods

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/directory"
	"github.com/2389/coven-chat/internal/events"
	"github.com/2389/coven-chat/internal/notify"
	"github.com/2389/coven-chat/internal/render"
)

const (
	inputCharLimit = 1000
	sidebarWidth   = 30
	minMainWidth   = 20

	placeholderReady = "Type a message..."
	placeholderBusy  = "Waiting for the agent..."
)

// Conversation is what the message panel needs from the controller.
type Conversation interface {
	Snapshot() conversation.State
	SendMessage(text string) bool
	Reset()
}

// Sessions is what the sidebar needs from the directory.
type Sessions interface {
	Listing() directory.Listing
	Active() string
	Select(id string)
	RequestNewSession()
	Refresh()
}

type focus int

const (
	focusInput focus = iota
	focusSidebar
)

// Model is the root Bubble Tea model.
type Model struct {
	conv     Conversation
	sessions Sessions
	title    string

	state   conversation.State
	listing directory.Listing
	active  string
	cursor  int
	toast   *notify.Notification

	focus    focus
	input    textinput.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	theme    theme

	width  int
	height int
}

// New builds the model. title is shown above the message panel.
func New(conv Conversation, sessions Sessions, title string) Model {
	input := textinput.New()
	input.Placeholder = placeholderReady
	input.CharLimit = inputCharLimit
	input.Prompt = "> "
	input.Focus()

	vp := viewport.New(0, 0)
	vp.MouseWheelEnabled = true

	m := Model{
		conv:     conv,
		sessions: sessions,
		title:    title,
		input:    input,
		viewport: vp,
		help:     help.New(),
		keys:     defaultKeyMap,
		theme:    newTheme(),
	}
	m.syncTranscript()
	m.syncDirectory()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case transcriptChangedMsg:
		m.syncTranscript()
		return m, nil

	case directoryChangedMsg:
		m.syncDirectory()
		return m, nil

	case toastMsg:
		n := msg.n
		m.toast = &n
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey applies global and panel bindings. It reports whether msg was
// consumed.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return nil, true

	case key.Matches(msg, m.keys.Reset):
		m.conv.Reset()
		return nil, true

	case key.Matches(msg, m.keys.New):
		m.sessions.RequestNewSession()
		return nil, true

	case key.Matches(msg, m.keys.Reload):
		m.sessions.Refresh()
		return nil, true

	case key.Matches(msg, m.keys.Send):
		if m.focus == focusSidebar {
			m.selectCursor()
			return nil, true
		}
		if m.conv.SendMessage(m.input.Value()) {
			m.input.Reset()
		}
		return nil, true
	}

	if m.focus == focusSidebar {
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return nil, true
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.listing.Contexts)-1 {
				m.cursor++
			}
			return nil, true
		}
	}
	return nil, false
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusSidebar
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) selectCursor() {
	if m.cursor < 0 || m.cursor >= len(m.listing.Contexts) {
		return
	}
	m.sessions.Select(m.listing.Contexts[m.cursor].ID)
}

func (m *Model) syncTranscript() {
	m.state = m.conv.Snapshot()
	if m.state.Busy {
		m.input.Placeholder = placeholderBusy
	} else {
		m.input.Placeholder = placeholderReady
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) syncDirectory() {
	m.listing = m.sessions.Listing()
	m.active = m.sessions.Active()
	if m.cursor >= len(m.listing.Contexts) {
		m.cursor = max(len(m.listing.Contexts)-1, 0)
	}
}

func (m *Model) layout() {
	mainWidth := max(m.width-sidebarWidth-4, minMainWidth)
	// header, input box (3), status line, help line
	vpHeight := max(m.height-8, 3)
	m.viewport.Width = mainWidth
	m.viewport.Height = vpHeight
	m.input.Width = mainWidth - 4
	m.help.Width = m.width
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	sidebarStyle, mainStyle := m.theme.panel, m.theme.panel
	if m.focus == focusSidebar {
		sidebarStyle = m.theme.panelActive
	} else {
		mainStyle = m.theme.panelActive
	}

	sidebar := sidebarStyle.
		Width(sidebarWidth - 2).
		Height(m.viewport.Height + 4).
		Render(m.renderSidebar())

	header := m.theme.title.Render(m.title)
	if m.state.ContextID != "" {
		header += m.theme.muted.Render("  " + m.state.ContextID)
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		mainStyle.Width(m.viewport.Width-2).Render(m.input.View()),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		m.renderStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) renderTranscript() string {
	if len(m.state.Transcript) == 0 {
		return m.theme.muted.Render(render.EmptyTranscript)
	}

	width := m.viewport.Width
	body := lipgloss.NewStyle()
	if width > 0 {
		body = body.Width(width)
	}

	var b strings.Builder
	for i, msg := range m.state.Transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.labelStyle(msg.Sender).Render(msg.Sender.Label()))
		b.WriteString("\n")
		if msg.Pending() {
			b.WriteString(m.theme.pending.Render(msg.Body))
			continue
		}
		b.WriteString(body.Render(msg.Body))
	}
	return b.String()
}

func (m Model) labelStyle(s conversation.Sender) lipgloss.Style {
	switch s {
	case conversation.SenderUser:
		return m.theme.user
	case conversation.SenderAgent:
		return m.theme.agent
	default:
		return m.theme.system
	}
}

func (m Model) renderSidebar() string {
	heading := "Conversations"
	if m.listing.Refreshing {
		heading += " ↻"
	}

	lines := []string{m.theme.title.Render(heading), ""}
	switch {
	case m.listing.State == directory.StateLoading:
		lines = append(lines, m.theme.muted.Render("Loading..."))
	case m.listing.State == directory.StateError:
		lines = append(lines, m.theme.danger.Render("Failed to load conversations"))
	case len(m.listing.Contexts) == 0:
		lines = append(lines, m.theme.muted.Render("No conversations yet"))
	default:
		for i, c := range m.listing.Contexts {
			label := truncate(displayTitle(c.Title, c.ID), sidebarWidth-6)
			switch {
			case m.focus == focusSidebar && i == m.cursor:
				label = m.theme.selected.Render(label)
			case c.ID == m.active:
				label = m.theme.active.Render(label)
			}
			lines = append(lines, label)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	var parts []string
	if m.state.Busy {
		parts = append(parts, m.theme.info.Render("working"))
	}
	if m.toast != nil {
		text := m.toast.Title
		if m.toast.Description != "" {
			text = fmt.Sprintf("%s: %s", text, m.toast.Description)
		}
		style := m.theme.info
		if m.toast.Severity == notify.SeverityError {
			style = m.theme.danger
		}
		parts = append(parts, style.Render(text))
	}
	return strings.Join(parts, "  ")
}

func displayTitle(title, id string) string {
	if strings.TrimSpace(title) == "" {
		return id
	}
	return title
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Run starts the program and blocks until the user quits or ctx ends. The
// forwarder is registered as a toast sink on center when center is non-nil.
func Run(ctx context.Context, ch *events.Channel, center *notify.Center, conv Conversation, sessions Sessions, title string) error {
	p := tea.NewProgram(New(conv, sessions, title), tea.WithAltScreen(), tea.WithContext(ctx))

	fwd := NewForwarder(ch, p.Send)
	defer fwd.Close()
	if center != nil {
		center.AddSink(fwd)
	}

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
