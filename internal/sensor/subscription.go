package sensor

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
)

var nextSubscriptionID atomic.Uint64

// Emitter is handed to a running source. It tags every message with its
// subscription and drops everything once the subscription is cancelled.
type Emitter struct {
	sub       uint64
	source    string
	out       Sender
	cancelled atomic.Bool
	now       func() time.Time
}

// Sample forwards one raw vector.
func (e *Emitter) Sample(x, y, z float64) {
	e.SampleWithAccuracy(x, y, z, config.PlaceholderAccuracy)
}

// SampleWithAccuracy forwards one raw vector with an accuracy value that is
// passed through untouched.
func (e *Emitter) SampleWithAccuracy(x, y, z, accuracy float64) {
	if e.cancelled.Load() {
		return
	}
	msg := SampleMsg{Sub: e.sub, Accuracy: accuracy, At: e.now()}
	msg.Vector.X, msg.Vector.Y, msg.Vector.Z = x, y, z
	e.out.Send(msg)
}

// Fail reports that the stream died. The subscription is over after this.
func (e *Emitter) Fail(err error) {
	if e.cancelled.Load() {
		return
	}
	e.out.Send(failureStatus(e.sub, e.source, err))
}

// Cancelled reports whether the subscription has ended.
func (e *Emitter) Cancelled() bool {
	return e.cancelled.Load()
}

// Subscription is one logical sample stream from a source. It owns the
// source for its whole lifetime.
type Subscription struct {
	id      uint64
	src     Source
	emitter *Emitter
	log     *zap.SugaredLogger

	// mu guards the flags only. It is never held across a call into the
	// source, so Cancel cannot wait on a source that waits on the consumer.
	mu      sync.Mutex
	started bool
	done    bool

	stopped  chan struct{}
	stopOnce sync.Once
}

// Subscribe resolves availability and permission for src in the background
// and starts it. The outcome is sent to out as a StatusMsg; samples follow as
// SampleMsg. Lifecycle failures are reported once and the source is never
// started.
func Subscribe(src Source, out Sender, interval time.Duration, log *zap.SugaredLogger) *Subscription {
	id := nextSubscriptionID.Add(1)
	s := &Subscription{
		id:  id,
		src: src,
		emitter: &Emitter{
			sub:    id,
			source: src.Name(),
			out:    out,
			now:    time.Now,
		},
		log:     log.With("source", src.Name(), "subscription", id),
		stopped: make(chan struct{}),
	}
	go s.run(interval)
	return s
}

// ID identifies the subscription on every message it sends.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Source returns the name of the subscribed source.
func (s *Subscription) Source() string {
	return s.src.Name()
}

// Cancel ends the subscription. Safe to call more than once and before the
// source has started. It never waits for the source: a running source is
// stopped in the background, since its callbacks may be blocked sending to
// the very goroutine that called Cancel.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.emitter.cancelled.Store(true)
	started := s.started
	s.mu.Unlock()

	s.log.Debugw("subscription cancelled")
	if started {
		go s.release()
	}
}

// Stopped is closed once the source has been released, or once the
// subscription has ended without ever starting it.
func (s *Subscription) Stopped() <-chan struct{} {
	return s.stopped
}

func (s *Subscription) release() {
	s.src.Stop()
	s.markStopped()
}

func (s *Subscription) markStopped() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

func (s *Subscription) run(interval time.Duration) {
	if err := s.src.Available(); err != nil {
		s.finish(err)
		return
	}
	if err := s.src.RequestPermission(); err != nil {
		s.finish(err)
		return
	}

	// Report readiness before the first sample can be emitted.
	if s.emitter.Cancelled() {
		// Cancelled while resolving; release whatever Available acquired.
		s.release()
		return
	}
	s.emitter.out.Send(StatusMsg{
		Sub:               s.id,
		Source:            s.src.Name(),
		Available:         true,
		PermissionGranted: true,
	})

	if s.emitter.Cancelled() {
		s.release()
		return
	}
	err := s.src.Start(s.emitter, interval)

	s.mu.Lock()
	cancelled := s.done
	if err != nil {
		s.done = true
	} else if !cancelled {
		s.started = true
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.markStopped()
		s.log.Warnw("source failed to start", "error", err)
		s.emitter.Fail(err)
	case cancelled:
		// Cancel ran while Start was in progress and left the stop to us.
		s.release()
	default:
		s.log.Infow("subscription started", "interval", interval)
	}
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		s.markStopped()
		return
	}
	s.done = true
	s.mu.Unlock()
	s.markStopped()

	s.log.Warnw("subscription refused", "error", err)
	s.emitter.Fail(err)
}

// failureStatus maps an error onto the lifecycle flags. Anything that is not
// a permission problem counts as the sensor being unavailable.
func failureStatus(sub uint64, source string, err error) StatusMsg {
	msg := StatusMsg{Sub: sub, Source: source, Err: err}
	if errors.Is(err, ErrPermissionDenied) {
		msg.Available = true
		return msg
	}
	if !errors.Is(err, ErrSensorUnavailable) {
		msg.Err = &unavailableError{cause: err}
	}
	return msg
}

// unavailableError marks an arbitrary start failure as ErrSensorUnavailable
// while keeping the original message.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string { return e.cause.Error() }

func (e *unavailableError) Is(target error) bool { return target == ErrSensorUnavailable }

func (e *unavailableError) Unwrap() error { return e.cause }
