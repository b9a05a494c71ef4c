package tape

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"go.viam.com/test"
)

// With width == visibleDegrees every column is one degree and the center
// column is 40.
const (
	testWidth   = 80
	testVisible = 80
)

func TestPlainNorthUp(t *testing.T) {
	rows := Plain(testWidth, 0, testVisible, true)
	test.That(t, rows, test.ShouldHaveLength, 3)
	for _, r := range rows {
		test.That(t, []rune(r), test.ShouldHaveLength, testWidth)
	}

	labels := []rune(rows[RowLabels])
	ticks := []rune(rows[RowTicks])
	base := []rune(rows[RowBaseline])

	test.That(t, string(labels[40]), test.ShouldEqual, "N")
	test.That(t, string(labels[69:72]), test.ShouldEqual, "30°")
	test.That(t, string(labels[9:13]), test.ShouldEqual, "330°")

	test.That(t, ticks[40], test.ShouldEqual, '┃')
	test.That(t, ticks[45], test.ShouldEqual, '╵')
	test.That(t, ticks[50], test.ShouldEqual, '│')
	test.That(t, ticks[41], test.ShouldEqual, ' ')

	test.That(t, base[40], test.ShouldEqual, '▲')
	test.That(t, base[0], test.ShouldEqual, '─')
}

func TestPlainHidesNumericLabels(t *testing.T) {
	rows := Plain(testWidth, 0, testVisible, false)
	test.That(t, strings.TrimSpace(rows[RowLabels]), test.ShouldEqual, "N")
}

func TestPlainFollowsHeading(t *testing.T) {
	rows := Plain(testWidth, 90, testVisible, true)
	labels := []rune(rows[RowLabels])
	test.That(t, string(labels[40]), test.ShouldEqual, "E")
	test.That(t, string(labels[9:12]), test.ShouldEqual, "60°")
	test.That(t, string(labels[69:73]), test.ShouldEqual, "120°")
}

func TestPlainIgnoresWholeTurns(t *testing.T) {
	want := Plain(testWidth, 123.4, testVisible, true)
	for _, p := range []float64{123.4 + 360, 123.4 - 720, 123.4 + 3600} {
		test.That(t, Plain(testWidth, p, testVisible, true), test.ShouldResemble, want)
	}
}

func TestPlainAcrossNorth(t *testing.T) {
	// 350 and -10 show north ten columns right of center
	for _, p := range []float64{350, -10} {
		labels := []rune(Plain(testWidth, p, testVisible, true)[RowLabels])
		test.That(t, string(labels[50]), test.ShouldEqual, "N")
	}
}

func TestPlainDropsCollidingLabels(t *testing.T) {
	// 12 degrees per column squeezes labels together
	rows := Plain(30, 0, 360, true)
	labels := rows[RowLabels]
	test.That(t, labels, test.ShouldContainSubstring, "N")

	// no two labels touch
	test.That(t, labels, test.ShouldNotContainSubstring, "°N")
	test.That(t, labels, test.ShouldNotContainSubstring, "N3")
}

func TestPlainDegenerateInputs(t *testing.T) {
	test.That(t, Plain(2, 0, 120, true), test.ShouldBeEmpty)
	test.That(t, Plain(80, 0, 0, true), test.ShouldBeEmpty)
	test.That(t, Render(2, 0, 120, true), test.ShouldEqual, "")
}

func TestRenderMatchesPlainText(t *testing.T) {
	plain := Plain(testWidth, 42, testVisible, true)
	styled := Render(testWidth, 42, testVisible, true)
	lines := strings.Split(styled, "\n")
	test.That(t, lines, test.ShouldHaveLength, 3)
	for i, line := range lines {
		test.That(t, lipgloss.Width(line), test.ShouldEqual, testWidth)
		test.That(t, stripANSI(line), test.ShouldEqual, plain[i])
	}
}

func TestColumn(t *testing.T) {
	col, ok := Column(80, 0, 80, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, col, test.ShouldEqual, 40)

	col, ok = Column(80, 0, 80, -40)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, col, test.ShouldEqual, 0)

	_, ok = Column(80, 0, 80, 40)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = Column(80, 0, 80, 90)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	err := EncodePNG(&buf, 725, ImageOptions{VisibleDegrees: 120, ShowNumeric: true, Value: HeadingLabel(725, true)})
	test.That(t, err, test.ShouldBeNil)

	img, err := png.Decode(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 480)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 200)

	bg := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	test.That(t, bg, test.ShouldResemble, DefaultPalette().Background)
}

func TestRenderImageDrawsNeedleAndCenterTick(t *testing.T) {
	img := RenderImage(0, ImageOptions{Width: 400, Height: 200, VisibleDegrees: 100})
	p := DefaultPalette()

	// north tick sits at the center column
	labelBaseline := 200 - bottomPadding
	tickBottom := labelBaseline - face.Metrics().Height.Ceil() - labelGap
	test.That(t, img.RGBAAt(200, tickBottom-1), test.ShouldResemble, p.ScaleLines)

	// needle apex row is directly above the cardinal ticks
	needleBottom := tickBottom - Cardinal.Height() - labelGap
	test.That(t, img.RGBAAt(200, needleBottom-1), test.ShouldResemble, p.Needle)
	test.That(t, img.RGBAAt(200, needleBottom-needleSize), test.ShouldResemble, p.Needle)
}

func stripANSI(s string) string {
	var sb strings.Builder
	esc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				esc = false
			}
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
