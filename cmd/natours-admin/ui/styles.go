package ui

import "github.com/charmbracelet/lipgloss"

// Natours brand greens for headings and success lines.
var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#55c57a")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#28b487"))

	countStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("#777777"))

	hintStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#eb4d4b"))
)
