package render

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#9D8CFF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#7BD88F"}

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	SubtleStyle  = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	PromptStyle  = lipgloss.NewStyle().Foreground(colorPrimary)
)
