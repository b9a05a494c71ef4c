package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"compass-tape.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, source string) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"+/-", "Smooth"},
		{"[/]", "View"},
		{"N", "umbers"},
		{"D", "ebug"},
		{"C", "alibrate"},
		{"R", "esubscribe"},
		{"Q", "uit"},
	}

	menu := ""
	for _, k := range keys {
		menu += "  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label)
	}

	left := StyleMenuKey.Render(title) + menu
	right := StyleMenuLabel.Render(fmt.Sprintf("Source: %s", source)) + " "

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
