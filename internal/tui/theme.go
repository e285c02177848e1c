// ABOUTME: Lip Gloss styles shared by the chat TUI panels
// ABOUTME: One theme value is built at startup and passed to the model

package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	panel       lipgloss.Style
	panelActive lipgloss.Style
	title       lipgloss.Style
	muted       lipgloss.Style
	user        lipgloss.Style
	agent       lipgloss.Style
	system      lipgloss.Style
	pending     lipgloss.Style
	selected    lipgloss.Style
	active      lipgloss.Style
	info        lipgloss.Style
	danger      lipgloss.Style
}

func newTheme() theme {
	border := lipgloss.Color("#3D4752")
	return theme{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		panelActive: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#65B5FF")).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#9FD3FF")),
		muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6E7B88")),
		user: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#65B5FF")),
		agent: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#63C17A")),
		system: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E06B75")),
		pending: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#6E7B88")),
		selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0E1116")).
			Background(lipgloss.Color("#65B5FF")),
		active: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E7B65A")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#65B5FF")),
		danger: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E06B75")),
	}
}
