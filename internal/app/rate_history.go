package app

// RateHistory keeps the last few sample-rate measurements in a circular
// buffer for the debug sparkline.
type RateHistory struct {
	buf   []float64
	pos   int
	count int
}

// NewRateHistory creates a buffer holding up to capacity measurements.
func NewRateHistory(capacity int) *RateHistory {
	return &RateHistory{
		buf: make([]float64, capacity),
	}
}

// Push records one measurement, overwriting the oldest when full.
func (r *RateHistory) Push(hz float64) {
	r.buf[r.pos] = hz
	r.pos = (r.pos + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Values returns the stored measurements oldest first.
func (r *RateHistory) Values() []float64 {
	if r.count == 0 {
		return nil
	}
	result := make([]float64, r.count)
	if r.count < len(r.buf) {
		copy(result, r.buf[:r.count])
	} else {
		n := copy(result, r.buf[r.pos:])
		copy(result[n:], r.buf[:r.pos])
	}
	return result
}

// Last returns the newest measurement, or 0 if empty.
func (r *RateHistory) Last() float64 {
	if r.count == 0 {
		return 0
	}
	return r.buf[(r.pos-1+len(r.buf))%len(r.buf)]
}

// Reset forgets all measurements.
func (r *RateHistory) Reset() {
	r.pos, r.count = 0, 0
}
