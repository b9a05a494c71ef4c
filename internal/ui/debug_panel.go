package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DebugInfo is the snapshot shown in the debug panel.
type DebugInfo struct {
	Heading    float64 // displayed heading, normalized
	Direction  string
	Raw        float64
	Target     float64
	SampleRate float64
	Accuracy   float64
	Smoothing  float64
	Visible    int
	RateTrend  []float64
	HasReading bool
}

const dialHeight = 7

// RenderDebugPanel renders heading statistics next to a small dial.
func RenderDebugPanel(width int, d DebugInfo) string {
	inner := width - 2
	if inner < 30 {
		inner = 30
	}

	heading, direction, raw, target := "---", "---", "---", "---"
	if d.HasReading {
		heading = fmt.Sprintf("%.0f°", d.Heading)
		direction = d.Direction
		raw = fmt.Sprintf("%.1f°", d.Raw)
		target = fmt.Sprintf("%.1f°", d.Target)
	}

	fields := []struct{ label, value string }{
		{"Heading", heading},
		{"Direction", direction},
		{"Raw", raw},
		{"Target", target},
		{"Rate", fmt.Sprintf("%.0f Hz", d.SampleRate)},
		{"Accuracy", fmt.Sprintf("%.0f", d.Accuracy)},
		{"Smoothing", fmt.Sprintf("%.2f", d.Smoothing)},
		{"View", fmt.Sprintf("%d°", d.Visible)},
	}

	lines := []string{StylePanelTitle.Render("DEBUG INFO")}
	for _, f := range fields {
		lines = append(lines, StyleStatLabel.Render(fmt.Sprintf("  %-10s", strings.ToUpper(f.label)))+StyleStatValue.Render(f.value))
	}
	if len(d.RateTrend) > 0 {
		lines = append(lines, "", StyleStatLabel.Render("  RATE HISTORY"))
		lines = append(lines, "  "+StyleText.Render(renderSparkline(d.RateTrend, inner/2-4)))
	}
	stats := strings.Join(lines, "\n")

	dial := ""
	if d.HasReading {
		dial = RenderDial(dialHeight*3, dialHeight, d.Heading)
	}
	statsW := lipgloss.Width(stats)
	pad := inner - statsW - lipgloss.Width(dial)
	if pad < 2 {
		pad = 2
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, stats, strings.Repeat(" ", pad), dial)

	return StylePanelBorder.Width(inner).Render(body)
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteRune(chars[idx])
	}

	return sb.String()
}
