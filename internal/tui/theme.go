package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorOK    = lipgloss.Color("42")
	colorWarn  = lipgloss.Color("214")
	colorFault = lipgloss.Color("196")
	colorMuted = lipgloss.Color("245")

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("0"))
	labelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(18)
	errorStyle = lipgloss.NewStyle().Foreground(colorFault)
	helpStyle  = lipgloss.NewStyle().Foreground(colorMuted)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)
