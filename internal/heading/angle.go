package heading

import "math"

// FullCircle is the size of the heading domain in degrees.
const FullCircle = 360.0

// sectorWidth is the arc covered by each of the 16 compass points.
const sectorWidth = FullCircle / 16

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// Normalize wraps an angle in degrees to [0, 360).
// NaN and infinities come back as NaN.
func Normalize(angle float64) float64 {
	r := math.Mod(angle, FullCircle)
	if r < 0 {
		r += FullCircle
	}
	// tiny negatives round up to exactly 360; -0 also lands here
	if r == 0 || r >= FullCircle {
		return 0
	}
	return r
}

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

// RadiansToDegrees converts radians to degrees.
func RadiansToDegrees(r float64) float64 {
	return r * 180 / math.Pi
}

// ShortestAngularDistance returns the signed rotation from one heading to
// another. Result is in [-180, 180), positive is clockwise.
func ShortestAngularDistance(from, to float64) float64 {
	diff := to - from
	d := math.Mod(diff+180, FullCircle) - 180
	if d < -180 {
		d += FullCircle
	}
	return d
}

// ShouldWrapHeading reports whether the 0/360 seam lies between two headings,
// i.e. a naive linear delta would cover more than half the circle.
func ShouldWrapHeading(current, previous float64) bool {
	return math.Abs(current-previous) > 180
}

// CardinalDirection returns the 16-point compass label for a heading.
// Exact half-sector values round up to the next point (11.25 is NNE).
// Non-finite input has no direction and yields "".
func CardinalDirection(heading float64) string {
	h := Normalize(heading)
	if math.IsNaN(h) {
		return ""
	}
	idx := int(math.Floor(h/sectorWidth+0.5)) % len(compassPoints)
	return compassPoints[idx]
}
