package heading

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestComputeHeadingCardinalVectors(t *testing.T) {
	cases := []struct {
		v    MagneticVector
		want float64
	}{
		{MagneticVector{X: 0, Y: -1}, 0},
		{MagneticVector{X: 1, Y: 0}, 90},
		{MagneticVector{X: 0, Y: 1}, 180},
		{MagneticVector{X: -1, Y: 0}, 270},
		{MagneticVector{X: 1, Y: -1}, 45},
		{MagneticVector{X: 1, Y: 1}, 135},
		{MagneticVector{X: -1, Y: 1}, 225},
		{MagneticVector{X: -1, Y: -1}, 315},
		{MagneticVector{X: math.Sqrt2 / 2, Y: -math.Sqrt2 / 2, Z: 40}, 45},
	}
	for _, tc := range cases {
		h, err := ComputeHeading(tc.v)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, h, test.ShouldAlmostEqual, tc.want, 1e-9)
	}
}

func TestComputeHeadingErrors(t *testing.T) {
	_, err := ComputeHeading(MagneticVector{})
	test.That(t, err, test.ShouldBeError, ErrDegenerateVector)

	// z alone does not define a horizontal direction
	_, err = ComputeHeading(MagneticVector{Z: 12})
	test.That(t, err, test.ShouldBeError, ErrDegenerateVector)

	for _, v := range []MagneticVector{
		{X: math.NaN(), Y: 0},
		{X: 1, Y: math.NaN()},
		{X: math.Inf(1), Y: 1},
		{X: 0, Y: math.Inf(-1)},
	} {
		_, err := ComputeHeading(v)
		test.That(t, err, test.ShouldBeError, ErrInvalidSample)
	}

	h, err := ComputeHeading(MagneticVector{X: 1e10, Y: 1e10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldAlmostEqual, 135, 1e-9)
}

func TestComputeHeadingRandomVectors(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 10000; i++ {
		scale := math.Pow(10, float64(r.Intn(20)-10))
		v := MagneticVector{
			X: (r.Float64()*2 - 1) * scale,
			Y: (r.Float64()*2 - 1) * scale,
			Z: r.NormFloat64(),
		}
		if v.X == 0 && v.Y == 0 {
			continue
		}
		h, err := ComputeHeading(v)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, math.IsNaN(h), test.ShouldBeFalse)
		test.That(t, h, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, h, test.ShouldBeLessThan, 360)
	}
}

func TestVectorForHeadingRoundTrip(t *testing.T) {
	for h := 0.0; h < 360; h += 7.5 {
		got, err := ComputeHeading(VectorForHeading(h))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, math.Abs(ShortestAngularDistance(got, h)), test.ShouldBeLessThan, 1e-9)
	}
}
