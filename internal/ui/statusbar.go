package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SensorState is what the status bar shows for the subscription.
type SensorState int

const (
	StateConnecting SensorState = iota
	StateLive
	StateUnavailable
	StateDenied
)

// StatusInfo carries the values shown in the bottom bar.
type StatusInfo struct {
	State      SensorState
	Samples    int
	Dropped    int
	SampleRate float64
	Smoothing  float64
	Visible    int
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	var status string
	switch info.State {
	case StateLive:
		status = StyleStatusLive.Render("[LIVE]")
	case StateUnavailable:
		status = StyleStatusError.Render("[UNAVAILABLE]")
	case StateDenied:
		status = StyleStatusError.Render("[DENIED]")
	default:
		status = StyleStatusWaiting.Render("[CONNECTING]")
	}

	text := fmt.Sprintf(" Samples: %d  Dropped: %d  Rate: %.0fHz  Smoothing: %.2f  View: %d°",
		info.Samples, info.Dropped, info.SampleRate, info.Smoothing, info.Visible)

	content := status + StyleStatusBar.Render(text)

	gap := width - 2 - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
