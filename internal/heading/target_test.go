package heading

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestTargetControllerBackwardWrap(t *testing.T) {
	c := NewTargetController(0)
	test.That(t, c.Target(), test.ShouldEqual, 0)
	test.That(t, c.Update(10), test.ShouldEqual, 10)
	test.That(t, c.Update(350), test.ShouldEqual, -10)
	test.That(t, c.Previous(), test.ShouldEqual, 350)
}

func TestTargetControllerForwardWrap(t *testing.T) {
	c := NewTargetController(350)
	var got []float64
	for _, h := range []float64{355, 359, 1, 10, 40} {
		got = append(got, c.Update(h))
	}
	test.That(t, got, test.ShouldResemble, []float64{355, 359, 361, 370, 400})
}

func TestTargetControllerMultipleTurns(t *testing.T) {
	c := NewTargetController(0)
	for turn := 0; turn < 3; turn++ {
		for h := 30.0; h <= 360; h += 30 {
			c.Update(Normalize(h))
		}
	}
	test.That(t, c.Target(), test.ShouldAlmostEqual, 3*360)

	for turn := 0; turn < 5; turn++ {
		for h := 330.0; h >= 0; h -= 30 {
			c.Update(h)
		}
	}
	test.That(t, c.Target(), test.ShouldAlmostEqual, -2*360)
}

func TestTargetControllerStepBound(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	c := NewTargetController(0)
	prevTarget := c.Target()
	prevHeading := 0.0
	for i := 0; i < 10000; i++ {
		h := r.Float64() * 360
		target := c.Update(h)
		step := target - prevTarget

		test.That(t, math.Abs(step), test.ShouldBeLessThanOrEqualTo, 180)
		test.That(t, step, test.ShouldAlmostEqual, ShortestAngularDistance(prevHeading, h), 1e-9)
		test.That(t, math.Abs(ShortestAngularDistance(Normalize(target), h)), test.ShouldBeLessThan, 1e-6)

		prevTarget, prevHeading = target, h
	}
}
