package tape

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"compass-tape.klederson.com/internal/heading"
)

var (
	colorScaleText  = lipgloss.Color("#e0e0e0")
	colorScaleLines = lipgloss.Color("#8899aa")
	colorNeedle     = lipgloss.Color("#ff9f43")

	styleCardinalLabel = lipgloss.NewStyle().Foreground(colorScaleText).Bold(true)
	styleNumericLabel  = lipgloss.NewStyle().Foreground(colorScaleText)
	styleTick          = lipgloss.NewStyle().Foreground(colorScaleLines)
	styleCardinalTick  = lipgloss.NewStyle().Foreground(colorScaleLines).Bold(true)
	styleNeedle        = lipgloss.NewStyle().Foreground(colorNeedle).Bold(true)
)

// Rows in the terminal tape.
const (
	RowLabels = iota
	RowTicks
	RowBaseline
	rowCount
)

type cellKind int

const (
	cellBlank cellKind = iota
	cellNumericLabel
	cellCardinalLabel
	cellMinorTick
	cellMajorTick
	cellCardinalTick
	cellBaseline
	cellNeedle
)

type cell struct {
	ch   rune
	kind cellKind
}

// Render draws the tape for a terminal: a label row, a tick row, and a
// baseline carrying the needle at the center column. position may be any
// unwrapped angle.
func Render(width int, position float64, visibleDegrees int, showNumeric bool) string {
	rows := layout(width, position, visibleDegrees, showNumeric)
	if rows == nil {
		return ""
	}

	var sb strings.Builder
	for r, row := range rows {
		writeStyled(&sb, row)
		if r < len(rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Plain is Render without styling.
func Plain(width int, position float64, visibleDegrees int, showNumeric bool) []string {
	rows := layout(width, position, visibleDegrees, showNumeric)
	out := make([]string, len(rows))
	for r, row := range rows {
		rs := make([]rune, len(row))
		for i, c := range row {
			rs[i] = c.ch
		}
		out[r] = string(rs)
	}
	return out
}

// Column returns the terminal column of an unwrapped degree mark relative
// to the tape center, and whether it falls inside the window.
func Column(width int, center float64, visibleDegrees int, degree float64) (int, bool) {
	if width <= 0 || visibleDegrees <= 0 {
		return 0, false
	}
	half := float64(visibleDegrees) / 2
	offset := degree - center
	if offset < -half || offset > half {
		return 0, false
	}
	perCol := float64(visibleDegrees) / float64(width)
	col := width/2 + int(math.Round(offset/perCol))
	if col < 0 || col >= width {
		return 0, false
	}
	return col, true
}

func layout(width int, position float64, visibleDegrees int, showNumeric bool) [][]cell {
	if width < 3 || visibleDegrees <= 0 || math.IsNaN(position) || math.IsInf(position, 0) {
		return nil
	}
	center := heading.Normalize(position)

	rows := make([][]cell, rowCount)
	for r := range rows {
		rows[r] = make([]cell, width)
		for c := range rows[r] {
			rows[r][c] = cell{ch: ' ', kind: cellBlank}
		}
	}
	for c := range rows[RowBaseline] {
		rows[RowBaseline][c] = cell{ch: '─', kind: cellBaseline}
	}

	type placed struct {
		tick Tick
		col  int
	}
	var visible []placed
	for _, t := range Ticks {
		col, ok := Column(width, center, visibleDegrees, float64(t.Degree))
		if !ok {
			continue
		}
		// Narrow terminals fold several ticks into one column; keep the most
		// prominent.
		existing := rows[RowTicks][col]
		kind := tickCell(t.Kind)
		if existing.kind == cellBlank || kind > existing.kind {
			rows[RowTicks][col] = cell{ch: tickRune(t.Kind), kind: kind}
		}
		if rows[RowBaseline][col].kind == cellBaseline && t.Kind == Cardinal {
			rows[RowBaseline][col] = cell{ch: '┴', kind: cellBaseline}
		}
		visible = append(visible, placed{tick: t, col: col})
	}

	// Cardinals claim label space first, then numeric labels fill gaps.
	// A label that would overlap another is dropped.
	type segment struct{ start, end int }
	var occupied []segment
	placeLabel := func(p placed, kind cellKind) {
		label := []rune(p.tick.VisibleLabel(showNumeric))
		if len(label) == 0 {
			return
		}
		start := p.col - (len(label)-1)/2
		end := start + len(label)
		if start < 0 || end > width {
			return
		}
		for _, seg := range occupied {
			// one blank column between labels
			if start <= seg.end && end >= seg.start {
				return
			}
		}
		occupied = append(occupied, segment{start, end})
		for i, r := range label {
			rows[RowLabels][start+i] = cell{ch: r, kind: kind}
		}
	}
	for _, p := range visible {
		if p.tick.Kind == Cardinal {
			placeLabel(p, cellCardinalLabel)
		}
	}
	for _, p := range visible {
		if p.tick.Kind != Cardinal {
			placeLabel(p, cellNumericLabel)
		}
	}

	rows[RowBaseline][width/2] = cell{ch: '▲', kind: cellNeedle}
	return rows
}

func tickCell(k TickKind) cellKind {
	switch k {
	case Cardinal:
		return cellCardinalTick
	case Major:
		return cellMajorTick
	default:
		return cellMinorTick
	}
}

func tickRune(k TickKind) rune {
	switch k {
	case Cardinal:
		return '┃'
	case Major:
		return '│'
	default:
		return '╵'
	}
}

func styleFor(k cellKind) (lipgloss.Style, bool) {
	switch k {
	case cellCardinalLabel:
		return styleCardinalLabel, true
	case cellNumericLabel:
		return styleNumericLabel, true
	case cellCardinalTick:
		return styleCardinalTick, true
	case cellMajorTick, cellMinorTick, cellBaseline:
		return styleTick, true
	case cellNeedle:
		return styleNeedle, true
	}
	return lipgloss.Style{}, false
}

// writeStyled renders runs of same-kind cells with one style call each.
func writeStyled(sb *strings.Builder, row []cell) {
	for i := 0; i < len(row); {
		j := i
		var run []rune
		for j < len(row) && row[j].kind == row[i].kind {
			run = append(run, row[j].ch)
			j++
		}
		if style, ok := styleFor(row[i].kind); ok {
			sb.WriteString(style.Render(string(run)))
		} else {
			sb.WriteString(string(run))
		}
		i = j
	}
}
