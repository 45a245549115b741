package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)

	// SpinnerStyle colors the footer spinner.
	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		"available": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"ready":     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"ok":        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		"checking":     lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"initializing": lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		"installing":   lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Degraded
		"missing":             lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"warning":             lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"ready-with-warnings": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		"error": lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		"pending":         lipgloss.NewStyle().Faint(true),
		"not-initialized": lipgloss.NewStyle().Faint(true),
	}
)

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
