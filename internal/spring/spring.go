package spring

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

// settleEpsilon is how close position and velocity must be to rest for the
// animation to count as settled.
const settleEpsilon = 0.01

// Animator moves the displayed tape position toward the unwrapped heading
// target with a damped spring, one step per frame.
type Animator struct {
	spring   harmonica.Spring
	Position float64 // Current displayed angle, unwrapped degrees
	Velocity float64 // Degrees per frame
	Target   float64
	seeded   bool
}

// New creates an animator stepping at fps frames per second, using the
// configured damping, stiffness and mass.
func New(fps int) *Animator {
	return NewWithParams(fps, config.SpringDamping, config.SpringStiffness, config.SpringMass)
}

// NewWithParams creates an animator from physical spring constants.
// harmonica wants angular frequency and damping ratio, so convert:
// omega = sqrt(k/m), zeta = c / (2*sqrt(k*m)).
func NewWithParams(fps int, damping, stiffness, mass float64) *Animator {
	omega := math.Sqrt(stiffness / mass)
	zeta := damping / (2 * math.Sqrt(stiffness*mass))
	return &Animator{
		spring: harmonica.NewSpring(harmonica.FPS(fps), omega, zeta),
	}
}

// SetTarget sets the position to move toward. The first target snaps so the
// tape does not sweep in from zero.
func (a *Animator) SetTarget(t float64) {
	a.Target = t
	if !a.seeded {
		a.Position = t
		a.Velocity = 0
		a.seeded = true
	}
}

// Rebase points the animator at a target coming from a fresh unwrapped
// sequence. The position moves by whole turns to the copy nearest the new
// target, so the visible tape does not change and the spring only travels
// the short way.
func (a *Animator) Rebase(t float64) {
	if !a.seeded {
		a.SetTarget(t)
		return
	}
	a.Position = t + heading.ShortestAngularDistance(t, a.Position)
	a.Target = t
}

// Update advances the spring by one frame and returns the new position.
func (a *Animator) Update() float64 {
	if !a.seeded {
		return a.Position
	}
	a.Position, a.Velocity = a.spring.Update(a.Position, a.Velocity, a.Target)
	return a.Position
}

// Seeded reports whether a target has ever been set.
func (a *Animator) Seeded() bool {
	return a.seeded
}

// Settled reports whether the spring has come to rest on its target.
func (a *Animator) Settled() bool {
	return math.Abs(a.Position-a.Target) < settleEpsilon && math.Abs(a.Velocity) < settleEpsilon
}

// Degrees returns the displayed heading normalized to [0, 360).
func (a *Animator) Degrees() float64 {
	return heading.Normalize(a.Position)
}
