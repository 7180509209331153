package cli

import "github.com/charmbracelet/lipgloss"

// Colors defines the palette for command output.
var colors = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
}{
	Primary: lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Error:   lipgloss.Color("#D63031"), // Red
	Success: lipgloss.Color("#00B894"), // Green
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
}

// styles used when printing to a terminal.
// Colors are dropped when stdout is not a terminal.
var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Warning lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colors.Primary),
	Label:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colors.Muted),
	Success: lipgloss.NewStyle().Bold(true).Foreground(colors.Success),
	Failure: lipgloss.NewStyle().Bold(true).Foreground(colors.Error),
	Warning: lipgloss.NewStyle().Foreground(colors.Warning),
}
