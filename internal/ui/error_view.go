package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderErrorView replaces the tape when the sensor cannot be used.
func RenderErrorView(width, height int, message string) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	lines := []string{
		"",
		center.Render(StyleErrorTitle.Render("Compass Unavailable")),
		"",
		center.Render(StyleText.Render(message)),
		"",
		center.Render(StyleHelp.Render("[R] retry  [Q] quit")),
	}
	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	return StylePanelBorder.BorderForeground(ColorError).Width(inner).Render(strings.Join(lines, "\n"))
}
