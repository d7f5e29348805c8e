package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.AdaptiveColor{Light: "#6d28d9", Dark: "#a78bfa"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#9ca3af"}
	errorColor  = lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#f87171"}
	okColor     = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34d399"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)

	stepActiveStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	stepDoneStyle    = lipgloss.NewStyle().Foreground(okColor)
	stepPendingStyle = lipgloss.NewStyle().Foreground(mutedColor)

	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	successStyle   = lipgloss.NewStyle().Bold(true).Foreground(okColor)
	hintStyle      = lipgloss.NewStyle().Foreground(mutedColor).Italic(true).MarginTop(1)
	containerStyle = lipgloss.NewStyle().Padding(1, 2)
)
