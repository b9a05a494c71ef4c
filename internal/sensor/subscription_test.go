package sensor

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.viam.com/test"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

type recorder struct {
	ch chan tea.Msg
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan tea.Msg, 4096)}
}

func (r *recorder) Send(msg tea.Msg) {
	select {
	case r.ch <- msg:
	default:
	}
}

func (r *recorder) next(t *testing.T) tea.Msg {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func (r *recorder) quiet(d time.Duration) bool {
	select {
	case <-r.ch:
		return false
	case <-time.After(d):
		return true
	}
}

type fakeSource struct {
	availErr error
	permErr  error
	startErr error

	mu      sync.Mutex
	emitter *Emitter
	stops   int
	started chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{started: make(chan struct{})}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Available() error { return f.availErr }

func (f *fakeSource) RequestPermission() error { return f.permErr }

func (f *fakeSource) Start(e *Emitter, _ time.Duration) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.emitter = e
	f.mu.Unlock()
	close(f.started)
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeSource) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func TestSubscribeReadyThenSamples(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	sub := Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())
	defer sub.Cancel()

	status, ok := rec.next(t).(StatusMsg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status.Ready(), test.ShouldBeTrue)
	test.That(t, status.Sub, test.ShouldEqual, sub.ID())
	test.That(t, status.Source, test.ShouldEqual, "fake")

	<-src.started
	src.emitter.Sample(1, 0, 5)

	sample, ok := rec.next(t).(SampleMsg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, sample.Sub, test.ShouldEqual, sub.ID())
	test.That(t, sample.Vector, test.ShouldResemble, heading.MagneticVector{X: 1, Y: 0, Z: 5})
	test.That(t, sample.Accuracy, test.ShouldEqual, config.PlaceholderAccuracy)
	test.That(t, sample.At.IsZero(), test.ShouldBeFalse)
}

func TestSubscribeUnavailable(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	src.availErr = ErrSensorUnavailable
	Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())

	status := rec.next(t).(StatusMsg)
	test.That(t, status.Ready(), test.ShouldBeFalse)
	test.That(t, status.Available, test.ShouldBeFalse)
	test.That(t, status.PermissionGranted, test.ShouldBeFalse)
	test.That(t, errors.Is(status.Err, ErrSensorUnavailable), test.ShouldBeTrue)
	test.That(t, rec.quiet(50*time.Millisecond), test.ShouldBeTrue)
}

func TestSubscribePermissionDenied(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	src.permErr = ErrPermissionDenied
	Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())

	status := rec.next(t).(StatusMsg)
	test.That(t, status.Ready(), test.ShouldBeFalse)
	test.That(t, status.Available, test.ShouldBeTrue)
	test.That(t, status.PermissionGranted, test.ShouldBeFalse)
	test.That(t, errors.Is(status.Err, ErrPermissionDenied), test.ShouldBeTrue)
}

func TestStartFailureCountsAsUnavailable(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	src.startErr = errors.New("adapter busy")
	Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())

	test.That(t, rec.next(t).(StatusMsg).Ready(), test.ShouldBeTrue)

	status := rec.next(t).(StatusMsg)
	test.That(t, status.Ready(), test.ShouldBeFalse)
	test.That(t, errors.Is(status.Err, ErrSensorUnavailable), test.ShouldBeTrue)
	test.That(t, status.Err.Error(), test.ShouldEqual, "adapter busy")
}

func TestCancelDropsLateSamples(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	sub := Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())
	rec.next(t)
	<-src.started

	sub.Cancel()
	sub.Cancel()
	waitStopped(t, sub)
	test.That(t, src.stopCount(), test.ShouldEqual, 1)

	src.emitter.Sample(1, 2, 3)
	src.emitter.Fail(ErrSensorUnavailable)
	test.That(t, src.emitter.Cancelled(), test.ShouldBeTrue)
	test.That(t, rec.quiet(50*time.Millisecond), test.ShouldBeTrue)
}

func waitStopped(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Stopped():
	case <-time.After(2 * time.Second):
		t.Fatal("source was never released")
	}
}

// stallingSender passes status through and parks every sample until
// released, like a UI loop that is busy elsewhere.
type stallingSender struct {
	status  chan StatusMsg
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newStallingSender() *stallingSender {
	return &stallingSender{
		status:  make(chan StatusMsg, 4),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stallingSender) Send(msg tea.Msg) {
	if st, ok := msg.(StatusMsg); ok {
		s.status <- st
		return
	}
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

// drainingSource mimics a broker client whose Stop waits for the callback
// that is currently delivering a message.
type drainingSource struct {
	*fakeSource
	inflight chan struct{}
}

func (d *drainingSource) Stop() {
	<-d.inflight
	d.fakeSource.Stop()
}

func TestCancelDoesNotWaitForBlockedDelivery(t *testing.T) {
	snd := newStallingSender()
	src := &drainingSource{fakeSource: newFakeSource(), inflight: make(chan struct{})}
	sub := Subscribe(src, snd, time.Millisecond, zap.NewNop().Sugar())

	select {
	case st := <-snd.status:
		test.That(t, st.Ready(), test.ShouldBeTrue)
	case <-time.After(2 * time.Second):
		t.Fatal("no ready status")
	}
	<-src.started

	go func() {
		src.emitter.Sample(1, 0, 0)
		close(src.inflight)
	}()
	<-snd.entered

	cancelled := make(chan struct{})
	go func() {
		sub.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Cancel blocked behind the in-flight send")
	}

	select {
	case <-sub.Stopped():
		t.Fatal("source released while its callback was still blocked")
	default:
	}

	close(snd.release)
	waitStopped(t, sub)
	test.That(t, src.stopCount(), test.ShouldEqual, 1)
}

func TestCancelRacingStartStopsOnce(t *testing.T) {
	rec := newRecorder()
	src := newFakeSource()
	sub := Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())
	sub.Cancel()

	waitStopped(t, sub)
	test.That(t, src.stopCount(), test.ShouldEqual, 1)
}

func TestSubscriptionsHaveDistinctIDs(t *testing.T) {
	rec := newRecorder()
	a := Subscribe(newFakeSource(), rec, time.Millisecond, zap.NewNop().Sugar())
	b := Subscribe(newFakeSource(), rec, time.Millisecond, zap.NewNop().Sugar())
	defer a.Cancel()
	defer b.Cancel()
	test.That(t, a.ID(), test.ShouldNotEqual, b.ID())
	test.That(t, a.Source(), test.ShouldEqual, "fake")
}

func TestMockSourceEmitsUsableSamples(t *testing.T) {
	rec := newRecorder()
	src := NewMockSource(config.DemoConfig{RotationDegPerSec: 90, Noise: 0.5})
	sub := Subscribe(src, rec, time.Millisecond, zap.NewNop().Sugar())
	defer sub.Cancel()

	test.That(t, rec.next(t).(StatusMsg).Ready(), test.ShouldBeTrue)

	valid := 0
	for i := 0; i < 50; i++ {
		sample := rec.next(t).(SampleMsg)
		test.That(t, sample.Sub, test.ShouldEqual, sub.ID())
		if _, err := heading.ComputeHeading(sample.Vector); err == nil {
			valid++
		}
	}
	test.That(t, valid, test.ShouldBeGreaterThan, 40)
}

func TestMockSourceFailModes(t *testing.T) {
	for _, tc := range []struct {
		fail string
		want error
	}{
		{"unavailable", ErrSensorUnavailable},
		{"denied", ErrPermissionDenied},
	} {
		t.Run(tc.fail, func(t *testing.T) {
			rec := newRecorder()
			Subscribe(NewMockSource(config.DemoConfig{Fail: tc.fail}), rec, time.Millisecond, zap.NewNop().Sugar())
			status := rec.next(t).(StatusMsg)
			test.That(t, errors.Is(status.Err, tc.want), test.ShouldBeTrue)
		})
	}
}

func TestFactoryBuildsConfiguredSource(t *testing.T) {
	cfg := config.Default()
	log := zap.NewNop().Sugar()

	for _, name := range []string{config.SourceDemo, config.SourceMQTT, config.SourceNMEA, config.SourceI2C} {
		cfg.Source = name
		src, err := FromConfig(cfg, log)()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, src.Name(), test.ShouldEqual, name)
	}

	cfg.Source = config.SourceBLE
	cfg.BLE.ServiceUUID = "not-a-uuid"
	_, err := FromConfig(cfg, log)()
	test.That(t, err, test.ShouldNotBeNil)

	cfg.Source = "sonar"
	_, err = FromConfig(cfg, log)()
	test.That(t, err, test.ShouldNotBeNil)
}
