package heading

import (
	"errors"
	"math"
)

var (
	// ErrDegenerateVector is returned when the horizontal field component is
	// zero and no direction can be derived.
	ErrDegenerateVector = errors.New("degenerate magnetic vector: x and y are both zero")

	// ErrInvalidSample is returned when a vector component is NaN or infinite.
	ErrInvalidSample = errors.New("invalid magnetic sample: non-finite component")
)

// MagneticVector is one raw magnetometer sample. Units don't matter, only
// the ratio of X to Y. Z is carried along but unused.
type MagneticVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ComputeHeading converts a magnetic vector into a heading in [0, 360),
// degrees clockwise from magnetic north.
//
// Axis convention: -Y points to magnetic north and +X to east, so
// (0,-1) is 0, (1,0) is 90, (0,1) is 180 and (-1,0) is 270.
func ComputeHeading(v MagneticVector) (float64, error) {
	if !finite(v.X) || !finite(v.Y) {
		return 0, ErrInvalidSample
	}
	if v.X == 0 && v.Y == 0 {
		return 0, ErrDegenerateVector
	}
	return Normalize(RadiansToDegrees(math.Atan2(v.X, -v.Y))), nil
}

// VectorForHeading returns the unit vector that ComputeHeading maps back to
// the given heading. Used by sources that report a heading instead of a field.
func VectorForHeading(h float64) MagneticVector {
	r := DegreesToRadians(h)
	return MagneticVector{X: math.Sin(r), Y: -math.Cos(r)}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
