package heading

import (
	"fmt"
	"math"
)

// ApplyEMA blends a new heading into the previous smoothed heading.
// When the seam lies between them the smaller value is lifted by 360 so the
// blend runs along the short arc. Result is normalized.
func ApplyEMA(current, previous, alpha float64) float64 {
	if ShouldWrapHeading(current, previous) {
		if current < previous {
			current += FullCircle
		} else {
			previous += FullCircle
		}
	}
	return Normalize(alpha*current + (1-alpha)*previous)
}

// Smoother applies exponential smoothing to a stream of headings.
// The zero value is not usable; create one with NewSmoother.
type Smoother struct {
	alpha       float64
	value       float64
	initialized bool
}

// NewSmoother creates a smoother with the given factor in [0, 1].
// 0 freezes the output at the first sample, 1 disables smoothing.
func NewSmoother(alpha float64) (*Smoother, error) {
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("smoothing factor %v outside [0, 1]", alpha)
	}
	return &Smoother{alpha: alpha}, nil
}

// Update feeds a raw heading and returns the new smoothed heading.
// The first heading after creation or Reset seeds the state unchanged.
func (s *Smoother) Update(raw float64) float64 {
	raw = Normalize(raw)
	if !s.initialized {
		s.value = raw
		s.initialized = true
		return raw
	}
	s.value = ApplyEMA(raw, s.value, s.alpha)
	return s.value
}

// Value returns the current smoothed heading and whether it has been seeded.
func (s *Smoother) Value() (float64, bool) {
	return s.value, s.initialized
}

// Alpha returns the smoothing factor.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Reset drops history; the next Update is treated as a fresh seed.
func (s *Smoother) Reset() {
	s.value = 0
	s.initialized = false
}
