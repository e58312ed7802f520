// Package style holds the lipgloss styles the terminal model renders
// with, separated from layout so palette changes stay in one place.
package style

import "github.com/charmbracelet/lipgloss"

// Styles holds every lipgloss style the screen and status line use.
type Styles struct {
	Screen     lipgloss.Style
	StatusBar  lipgloss.Style
	Connected  lipgloss.Style
	Connecting lipgloss.Style
	Disconnected lipgloss.Style
	Locked     lipgloss.Style
	Error      lipgloss.Style
}

// Default returns the default palette.
func Default() Styles {
	return Styles{
		Screen: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("236")),
		Connected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("71")),
		Connecting: lipgloss.NewStyle().
			Foreground(lipgloss.Color("179")),
		Disconnected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		Locked: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
	}
}
