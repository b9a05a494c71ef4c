package heading

// Reading is the output for one accepted sample.
type Reading struct {
	Raw      float64 `json:"raw"`      // unsmoothed heading, [0, 360)
	Heading  float64 `json:"heading"`  // smoothed heading, [0, 360)
	Target   float64 `json:"target"`   // unwrapped animation target
	Accuracy float64 `json:"accuracy"` // passed through from the source
	Cardinal string  `json:"cardinal"`
}

// Pipeline owns the smoothing and animation state of a single sensor
// subscription. It is not safe for concurrent use and must not be shared
// between subscriptions.
type Pipeline struct {
	smoother *Smoother
	target   *TargetController
	last     Reading
	accepted int
}

// NewPipeline creates a pipeline with the given smoothing factor.
func NewPipeline(alpha float64) (*Pipeline, error) {
	s, err := NewSmoother(alpha)
	if err != nil {
		return nil, err
	}
	return &Pipeline{smoother: s}, nil
}

// Process runs one sample through calculator, smoother and target
// controller. On ErrDegenerateVector or ErrInvalidSample the sample is
// dropped and no state changes.
func (p *Pipeline) Process(v MagneticVector, accuracy float64) (Reading, error) {
	raw, err := ComputeHeading(v)
	if err != nil {
		return Reading{}, err
	}

	smoothed := p.smoother.Update(raw)

	var target float64
	if p.target == nil {
		p.target = NewTargetController(smoothed)
		target = p.target.Target()
	} else {
		target = p.target.Update(smoothed)
	}

	p.last = Reading{
		Raw:      raw,
		Heading:  smoothed,
		Target:   target,
		Accuracy: accuracy,
		Cardinal: CardinalDirection(smoothed),
	}
	p.accepted++
	return p.last, nil
}

// Last returns the most recent accepted reading, if any.
func (p *Pipeline) Last() (Reading, bool) {
	return p.last, p.accepted > 0
}

// Accepted returns the number of samples that produced a reading.
func (p *Pipeline) Accepted() int {
	return p.accepted
}

// Alpha returns the smoothing factor of this pipeline.
func (p *Pipeline) Alpha() float64 {
	return p.smoother.Alpha()
}
