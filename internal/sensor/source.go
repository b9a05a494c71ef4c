package sensor

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"compass-tape.klederson.com/internal/heading"
)

var (
	// ErrSensorUnavailable means the magnetometer hardware or transport is
	// missing. Terminal for the subscription.
	ErrSensorUnavailable = errors.New("magnetometer sensor is not available on this device")

	// ErrPermissionDenied means access to the sensor was refused. Terminal
	// for the subscription.
	ErrPermissionDenied = errors.New("permission is required for magnetometer access")
)

// Sender receives messages from running sources. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Source is a magnetometer backend. A Source is started at most once; a new
// subscription asks its factory for a fresh one.
type Source interface {
	// Name identifies the source in the UI and logs.
	Name() string
	// Available checks the hardware or transport is present.
	Available() error
	// RequestPermission asks for access. Called only after Available succeeds.
	RequestPermission() error
	// Start begins delivering samples to e. It must not block.
	Start(e *Emitter, interval time.Duration) error
	// Stop halts delivery and releases the hardware.
	Stop()
}

// Factory creates a new Source for each subscription.
type Factory func() (Source, error)

// SampleMsg carries one raw magnetometer sample.
type SampleMsg struct {
	Sub      uint64
	Vector   heading.MagneticVector
	Accuracy float64
	At       time.Time
}

// StatusMsg reports the lifecycle state of a subscription. It is sent once
// when the subscription resolves and again if the stream fails.
type StatusMsg struct {
	Sub               uint64
	Source            string
	Available         bool
	PermissionGranted bool
	Err               error
}

// Ready reports whether samples from this subscription should be processed.
func (m StatusMsg) Ready() bool {
	return m.Available && m.PermissionGranted && m.Err == nil
}
