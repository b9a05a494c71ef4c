package tape

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

// Palette holds the colors of the image tape.
type Palette struct {
	Background   color.RGBA
	HeadingLabel color.RGBA
	HeadingValue color.RGBA
	ScaleText    color.RGBA
	ScaleLines   color.RGBA
	Needle       color.RGBA
}

// DefaultPalette is dark blue with amber accents.
func DefaultPalette() Palette {
	return Palette{
		Background:   color.RGBA{0x1a, 0x2b, 0x4a, 0xff},
		HeadingLabel: color.RGBA{0xff, 0x9f, 0x43, 0xff},
		HeadingValue: color.RGBA{0xff, 0xff, 0xff, 0xff},
		ScaleText:    color.RGBA{0xe0, 0xe0, 0xe0, 0xff},
		ScaleLines:   color.RGBA{0x88, 0x99, 0xaa, 0xff},
		Needle:       color.RGBA{0xff, 0x9f, 0x43, 0xff},
	}
}

// ImageOptions controls RenderImage.
type ImageOptions struct {
	Width          int // 0 means VisibleDegrees * config.DegreeWidth
	Height         int // 0 means config.DefaultHeight
	VisibleDegrees int
	ShowNumeric    bool
	// Value is the heading text above the tape, usually HeadingLabel.
	Value   string
	Palette Palette
}

const (
	needleSize    = 20
	bottomPadding = 10
	labelGap      = 4
)

var face = basicfont.Face7x13

// RenderImage draws the tape, needle and heading overlay into an image.
func RenderImage(position float64, opts ImageOptions) *image.RGBA {
	if opts.VisibleDegrees <= 0 {
		opts.VisibleDegrees = config.DefaultVisibleDegrees
	}
	if opts.Width <= 0 {
		opts.Width = opts.VisibleDegrees * config.DegreeWidth
	}
	if opts.Height <= 0 {
		opts.Height = config.DefaultHeight
	}
	if opts.Palette == (Palette{}) {
		opts.Palette = DefaultPalette()
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{opts.Palette.Background}, image.Point{}, draw.Src)

	center := 0.0
	if !math.IsNaN(position) && !math.IsInf(position, 0) {
		center = heading.Normalize(position)
	}
	pxPerDeg := float64(opts.Width) / float64(opts.VisibleDegrees)
	half := float64(opts.VisibleDegrees)/2 + float64(config.TickStep)

	labelBaseline := opts.Height - bottomPadding
	tickBottom := labelBaseline - face.Metrics().Height.Ceil() - labelGap

	for _, t := range Ticks {
		offset := float64(t.Degree) - center
		if offset < -half || offset > half {
			continue
		}
		x := opts.Width/2 + int(math.Round(offset*pxPerDeg))

		lw := t.Kind.LineWidth()
		fillRect(img, x-lw/2, tickBottom-t.Kind.Height(), lw, t.Kind.Height(), opts.Palette.ScaleLines)

		if label := t.VisibleLabel(opts.ShowNumeric); label != "" {
			drawText(img, label, x, labelBaseline, opts.Palette.ScaleText)
		}
	}

	needleBottom := tickBottom - Cardinal.Height() - labelGap
	drawNeedle(img, opts.Width/2, needleBottom, opts.Palette.Needle)

	lineHeight := face.Metrics().Height.Ceil()
	drawText(img, "HEADING", opts.Width/2, 20+lineHeight, opts.Palette.HeadingLabel)
	if opts.Value != "" {
		drawText(img, opts.Value, opts.Width/2, 20+2*lineHeight+labelGap, opts.Palette.HeadingValue)
	}
	return img
}

// EncodePNG renders the tape and writes it as PNG.
func EncodePNG(w io.Writer, position float64, opts ImageOptions) error {
	return png.Encode(w, RenderImage(position, opts))
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	r := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

// drawNeedle draws a downward triangle with its apex at (cx, bottom).
func drawNeedle(img *image.RGBA, cx, bottom int, c color.RGBA) {
	for row := 0; row < needleSize; row++ {
		// row 0 is the wide top edge
		halfWidth := (needleSize - row) / 2
		y := bottom - needleSize + row
		fillRect(img, cx-halfWidth, y, 2*halfWidth+1, 1, c)
	}
}

// drawText centers s horizontally on cx. basicfont has no degree sign, so
// it is drawn as a small ring after the digits.
func drawText(img *image.RGBA, s string, cx, baseline int, c color.RGBA) {
	body := strings.TrimSuffix(s, "°")
	degree := body != s

	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{c},
		Face: face,
	}
	w := d.MeasureString(body).Ceil()
	if degree {
		w += 4
	}
	d.Dot = fixed.P(cx-w/2, baseline)
	d.DrawString(body)

	if degree {
		x := d.Dot.X.Ceil() + 1
		y := baseline - face.Metrics().Ascent.Ceil() + 1
		for _, p := range [][2]int{{1, 0}, {0, 1}, {2, 1}, {1, 2}} {
			img.SetRGBA(x+p[0], y+p[1], c)
		}
	}
}
