package cli

import "github.com/charmbracelet/lipgloss"

// palette mirrors the colours used across slackpanel output.
var palette = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}{
	Primary: lipgloss.Color("#7C3AED"),
	Muted:   lipgloss.Color("#6C7086"),
	Success: lipgloss.Color("#A6E3A1"),
	Warning: lipgloss.Color("#F9E2AF"),
	Error:   lipgloss.Color("#F38BA8"),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(palette.Primary)
	labelStyle   = lipgloss.NewStyle().Foreground(palette.Muted).Width(12)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(palette.Success)
	warningStyle = lipgloss.NewStyle().Foreground(palette.Warning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(palette.Error)
)

// statusStyle picks the style for a run status.
func statusStyle(status string) lipgloss.Style {
	if status == "success" {
		return successStyle
	}
	return errorStyle
}
