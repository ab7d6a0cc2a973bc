// Package ui provides terminal styling for astscope command output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BC34A"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e53935"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8BC34A"))
)

// Title renders a section title.
func Title(s string) string { return titleStyle.Render(s) }

// Muted renders de-emphasized text.
func Muted(s string) string { return mutedStyle.Render(s) }

// Error renders an error line.
func Error(s string) string { return errorStyle.Render(s) }

// Success renders a success line.
func Success(s string) string { return successStyle.Render(s) }
