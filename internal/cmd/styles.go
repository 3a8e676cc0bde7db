package cmd

import "github.com/charmbracelet/lipgloss"

// Shared terminal styles for command output.
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	levelStyles = map[string]lipgloss.Style{
		"low":      dimStyle,
		"medium":   lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		"high":     warnStyle,
		"critical": failStyle.Bold(true),
	}
)

func levelStyle(level string) lipgloss.Style {
	if s, ok := levelStyles[level]; ok {
		return s
	}
	return dimStyle
}
