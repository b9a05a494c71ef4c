package tape

import (
	"fmt"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

// TickKind orders tick marks by prominence.
type TickKind int

const (
	Minor TickKind = iota
	Major
	Cardinal
)

func (k TickKind) String() string {
	switch k {
	case Cardinal:
		return "cardinal"
	case Major:
		return "major"
	default:
		return "minor"
	}
}

// Tick is one mark on the extended tape.
type Tick struct {
	Degree int // unwrapped, -360..720
	Kind   TickKind
	Label  string // cardinal name or numeric label, "" for none
	X      int    // offset in pixels at config.DegreeWidth
}

// VisibleLabel returns the label to draw. Cardinal names are always drawn.
func (t Tick) VisibleLabel(showNumeric bool) string {
	if t.Kind == Cardinal || showNumeric {
		return t.Label
	}
	return ""
}

// Height returns the tick line length in pixels.
func (k TickKind) Height() int {
	switch k {
	case Cardinal:
		return 40
	case Major:
		return 30
	default:
		return 20
	}
}

// LineWidth returns the tick line thickness in pixels.
func (k TickKind) LineWidth() int {
	return int(k) + 1
}

const (
	tapeStart = -360
	tapeEnd   = 720
)

var cardinals = map[int]string{
	0: "N", 45: "NE", 90: "E", 135: "SE",
	180: "S", 225: "SW", 270: "W", 315: "NW",
}

// Ticks spans three turns so any window up to a full turn around a
// normalized heading is covered without wrapping.
var Ticks = generateTicks()

func generateTicks() []Tick {
	ticks := make([]Tick, 0, (tapeEnd-tapeStart)/config.TickStep+1)
	for d := tapeStart; d <= tapeEnd; d += config.TickStep {
		ticks = append(ticks, Tick{
			Degree: d,
			Kind:   KindFor(d),
			Label:  LabelFor(d),
			X:      d * config.DegreeWidth,
		})
	}
	return ticks
}

// KindFor classifies a degree mark.
func KindFor(degree int) TickKind {
	n := normalizeInt(degree)
	if _, ok := cardinals[n]; ok {
		return Cardinal
	}
	if n%10 == 0 {
		return Major
	}
	return Minor
}

// LabelFor returns the cardinal name, or "<d>°" every NumericLabelStep
// degrees except north.
func LabelFor(degree int) string {
	n := normalizeInt(degree)
	if name, ok := cardinals[n]; ok {
		return name
	}
	if n%config.NumericLabelStep == 0 && n != 0 {
		return fmt.Sprintf("%d°", n)
	}
	return ""
}

// HeadingLabel formats a displayed heading as whole degrees, or a
// placeholder before the first reading.
func HeadingLabel(position float64, ok bool) string {
	if !ok {
		return "---°"
	}
	return fmt.Sprintf("%d°", roundDegree(position))
}

func roundDegree(position float64) int {
	d := int(heading.Normalize(position) + 0.5)
	return d % 360
}

func normalizeInt(d int) int {
	return ((d % 360) + 360) % 360
}
