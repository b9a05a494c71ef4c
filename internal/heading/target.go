package heading

// TargetController turns a stream of normalized headings into an unwrapped
// animation target. The target is a plain real number that keeps growing or
// shrinking across the seam, so an interpolator driven by it never takes
// the long way around the dial.
type TargetController struct {
	target   float64
	previous float64
}

// NewTargetController starts the unwrapped target at the initial heading.
func NewTargetController(initial float64) *TargetController {
	return &TargetController{target: initial, previous: initial}
}

// Update advances the target by the shortest rotation from the previously
// seen heading to h and returns it. The returned value is not normalized.
func (c *TargetController) Update(h float64) float64 {
	c.target += ShortestAngularDistance(c.previous, h)
	c.previous = h
	return c.target
}

// Target returns the current unwrapped target.
func (c *TargetController) Target() float64 {
	return c.target
}

// Previous returns the last normalized heading the target was derived from.
func (c *TargetController) Previous() float64 {
	return c.previous
}
