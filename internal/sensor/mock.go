package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

const (
	// Horizontal field strength and vertical component in microtesla, roughly
	// what a phone reports at mid latitudes.
	mockFieldStrength = 48.0
	mockFieldVertical = -30.0

	// Fraction of samples replaced with a zero horizontal vector, so the
	// pipeline's degenerate-sample path gets exercised in demo mode.
	mockDegenerateRate = 0.005
)

// MockSource simulates a slowly turning magnetometer for demo mode.
type MockSource struct {
	rotation float64 // degrees per second
	noise    float64 // degrees of heading jitter
	fail     string

	mu     sync.Mutex
	cancel context.CancelFunc
	rng    *rand.Rand
}

// NewMockSource creates a demo source from its config block.
func NewMockSource(cfg config.DemoConfig) *MockSource {
	return &MockSource{
		rotation: cfg.RotationDegPerSec,
		noise:    cfg.Noise,
		fail:     cfg.Fail,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *MockSource) Name() string { return config.SourceDemo }

// Available fails only when the demo is configured to act unavailable.
func (s *MockSource) Available() error {
	if s.fail == "unavailable" {
		return ErrSensorUnavailable
	}
	return nil
}

// RequestPermission fails only when the demo is configured to deny access.
func (s *MockSource) RequestPermission() error {
	if s.fail == "denied" {
		return ErrPermissionDenied
	}
	return nil
}

// Start begins the simulated sample loop.
func (s *MockSource) Start(e *Emitter, interval time.Duration) error {
	if interval <= 0 {
		interval = config.DefaultUpdateInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.loop(ctx, e, interval)
	return nil
}

func (s *MockSource) loop(ctx context.Context, e *Emitter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	phase := s.rng.Float64() * 360
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if e.Cancelled() {
				return
			}
			t := now.Sub(start).Seconds()
			s.emit(e, phase, t)
		}
	}
}

func (s *MockSource) emit(e *Emitter, phase, t float64) {
	if s.rng.Float64() < mockDegenerateRate {
		e.Sample(0, 0, mockFieldVertical)
		return
	}

	// Steady rotation plus a slow wander so the tape changes direction
	// now and then.
	h := phase + s.rotation*t + 40*math.Sin(t*0.15)
	h += s.rng.NormFloat64() * s.noise

	v := heading.VectorForHeading(h)
	strength := mockFieldStrength + s.rng.NormFloat64()*0.5
	e.Sample(v.X*strength, v.Y*strength, mockFieldVertical+s.rng.NormFloat64()*0.5)
}

// Stop halts the sample loop.
func (s *MockSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
