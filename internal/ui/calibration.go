package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var calibrationSections = []struct {
	title string
	lines []string
}{
	{"Why Calibrate?", []string{
		"Metal objects, electronics and magnetic cases disturb the",
		"magnetometer. Calibration removes their offset.",
	}},
	{"Handheld or Phone-mounted Sensor", []string{
		"1. Hold the sensor flat",
		"2. Move it in a figure-8 pattern in the air",
		"3. Repeat several times",
	}},
	{"Fixed Mount (boat, vehicle, robot)", []string{
		"1. Turn slowly through a full circle",
		"2. Keep speed steady and the mount level",
		"3. Repeat in the opposite direction",
	}},
	{"Tips for Best Results", []string{
		"• Move away from speakers, magnets and steel",
		"• Keep the sensor level for accurate readings",
		"• Recalibrate if the heading drifts or jumps",
	}},
}

// RenderCalibration renders the calibration instructions overlay.
func RenderCalibration(width int) string {
	inner := width - 2
	if inner < 20 {
		inner = 20
	}

	title := StylePanelTitle.Render("MAGNETOMETER CALIBRATION")
	hint := StyleHelp.Render("[C] close")
	gap := inner - lipgloss.Width(title) - lipgloss.Width(hint)
	if gap < 0 {
		gap = 0
	}
	lines := []string{title + strings.Repeat(" ", gap) + hint}

	for _, s := range calibrationSections {
		lines = append(lines, "", "  "+StyleSection.Render(s.title))
		for _, l := range s.lines {
			lines = append(lines, "    "+StyleText.Render(l))
		}
	}
	return StylePanelActive.Width(inner).Render(strings.Join(lines, "\n"))
}
