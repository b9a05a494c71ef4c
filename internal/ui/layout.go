package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout stacks the menu bar, the body panels and the status bar.
func ComposeLayout(menuBar string, body []string, statusBar string) string {
	parts := make([]string, 0, len(body)+2)
	parts = append(parts, menuBar)
	for _, b := range body {
		if b != "" {
			parts = append(parts, b)
		}
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
