package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	greenColor   = lipgloss.Color("#10B981") // Green
	redColor     = lipgloss.Color("#F87171") // Red
	yellowColor  = lipgloss.Color("#FBBF24") // Yellow
	blueColor    = lipgloss.Color("#60A5FA") // Blue
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	borderColor  = lipgloss.Color("#6B7280") // Gray

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	successStyle = lipgloss.NewStyle().Foreground(greenColor)
	errorStyle   = lipgloss.NewStyle().Foreground(redColor)
	warnStyle    = lipgloss.NewStyle().Foreground(yellowColor)
	activeStyle  = lipgloss.NewStyle().Foreground(blueColor)

	waveHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)
