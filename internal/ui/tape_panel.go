package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TapePanelInner is the content width inside the panel border.
func TapePanelInner(width int) int {
	return width - 2
}

// RenderTapePanel frames the heading overlay above the tape. The tape is
// rendered externally at TapePanelInner(width) columns.
func RenderTapePanel(width int, value, cardinal, tapeContent string) string {
	inner := TapePanelInner(width)
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	readout := StyleHeadingValue.Render(value)
	if cardinal != "" {
		readout += "  " + StyleHeadingLabel.Render(cardinal)
	}

	lines := []string{
		center.Render(StyleHeadingLabel.Render("HEADING")),
		center.Render(readout),
		"",
		tapeContent,
	}
	return StylePanelActive.Width(inner).Render(strings.Join(lines, "\n"))
}
