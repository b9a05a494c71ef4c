package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderDial renders a small round compass with an arrow along the heading.
// headingDeg is degrees clockwise from north.
func RenderDial(width, height int, headingDeg float64) string {
	if width < 9 || height < 5 {
		return ""
	}

	grid := make([][]rune, height)
	isArrow := make([][]bool, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		isArrow[i] = make([]bool, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	fcx := float64(width-1) / 2.0
	fcy := float64(height-1) / 2.0
	rx := fcx - 1.0 // horizontal radius in columns
	ry := fcy - 1.0 // vertical radius in rows
	if rx < 3 {
		rx = 3
	}
	if ry < 1 {
		ry = 1
	}

	steps := 80
	for i := 0; i < steps; i++ {
		a := float64(i) * 2 * math.Pi / float64(steps)
		col := int(math.Round(fcx + rx*math.Sin(a)))
		row := int(math.Round(fcy - ry*math.Cos(a)))
		if col >= 0 && col < width && row >= 0 && row < height && grid[row][col] == ' ' {
			grid[row][col] = '·'
		}
	}

	cx := int(math.Round(fcx))
	cy := int(math.Round(fcy))

	// Cardinal markers sit on the ring
	setGrid(grid, width, height, cx, cy-int(math.Round(ry))-1, 'N')
	setGrid(grid, width, height, cx, cy+int(math.Round(ry))+1, 'S')
	setGrid(grid, width, height, cx+int(math.Round(rx))+1, cy, 'E')
	setGrid(grid, width, height, cx-int(math.Round(rx))-1, cy, 'W')

	angle := headingDeg * math.Pi / 180
	sinA := math.Sin(angle)
	cosA := math.Cos(angle)

	shaftSteps := int(math.Max(rx, ry))
	if shaftSteps < 2 {
		shaftSteps = 2
	}
	tipCol, tipRow := cx, cy
	for s := 1; s <= shaftSteps; s++ {
		t := float64(s) / float64(shaftSteps) * 0.8
		col := int(math.Round(fcx + t*rx*sinA))
		row := int(math.Round(fcy - t*ry*cosA))
		if col >= 0 && col < width && row >= 0 && row < height {
			grid[row][col] = shaftChar(angle)
			isArrow[row][col] = true
			tipCol, tipRow = col, row
		}
	}
	grid[tipRow][tipCol] = arrowTip(angle)
	isArrow[tipRow][tipCol] = true

	setGrid(grid, width, height, cx, cy, '+')

	arrowSty := lipgloss.NewStyle().Foreground(ColorAmber).Bold(true)
	ringSty := lipgloss.NewStyle().Foreground(ColorScaleLines)
	markSty := lipgloss.NewStyle().Foreground(ColorWhite).Bold(true)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := grid[row][col]
			switch {
			case ch == 'N' || ch == 'S' || ch == 'E' || ch == 'W' || ch == '+':
				sb.WriteString(markSty.Render(string(ch)))
			case isArrow[row][col]:
				sb.WriteString(arrowSty.Render(string(ch)))
			case ch != ' ':
				sb.WriteString(ringSty.Render(string(ch)))
			default:
				sb.WriteByte(' ')
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func setGrid(grid [][]rune, w, h, col, row int, ch rune) {
	if col >= 0 && col < w && row >= 0 && row < h {
		grid[row][col] = ch
	}
}

func dialSector(a float64) int {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return int(math.Round(a/(math.Pi/4))) % 8
}

// shaftChar returns the line character for a given angle direction.
func shaftChar(a float64) rune {
	switch dialSector(a) {
	case 0, 4: // N, S
		return '|'
	case 2, 6: // E, W
		return '-'
	case 1, 5: // NE, SW
		return '/'
	default: // SE, NW
		return '\\'
	}
}

// arrowTip returns the arrowhead character for a given angle.
func arrowTip(a float64) rune {
	switch dialSector(a) {
	case 0:
		return '^'
	case 1:
		return '/'
	case 2:
		return '>'
	case 3:
		return '\\'
	case 4:
		return 'v'
	case 5:
		return '/'
	case 6:
		return '<'
	default:
		return '\\'
	}
}
