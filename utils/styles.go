package utils

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray

	WarningLightColor = lipgloss.Color("#FFAA44") // Lighter orange
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)

	WarningLightStyle = lipgloss.NewStyle().Foreground(WarningLightColor)
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(lipgloss.Color("#1a1a1a")).
			Bold(true).
			Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(MutedColor).
			Padding(0, 1)
)

// StateStyle picks the style for a target or heap state word
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "running", "valid", "analyzer":
		return GoodStyle
	case "stale", "unsupported":
		return WarningStyle
	case "gone":
		return CriticalStyle
	default:
		return MutedStyle
	}
}

// TruncateString cuts s to at most maxWidth terminal cells, ending it with
// "..." when anything was dropped
func TruncateString(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "...")
}
