package app

import (
	"errors"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
	"compass-tape.klederson.com/internal/sensor"
	"compass-tape.klederson.com/internal/spring"
	"compass-tape.klederson.com/internal/tape"
	"compass-tape.klederson.com/internal/ui"
)

const (
	rateWindow      = time.Second
	rateHistorySize = 60
)

// HeadingFunc receives every accepted reading.
type HeadingFunc func(heading.Reading)

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	factory sensor.Factory
	sender  sensor.Sender

	// Per-subscription state. Replaced as a whole on every resubscribe.
	sub      *sensor.Subscription
	pipeline *heading.Pipeline
	rebase   bool

	// Lives for the whole program so the tape never jumps.
	animator *spring.Animator

	rates      *RateHistory
	windowHits int

	onHeading []HeadingFunc
}

// AppModel is the root Bubble Tea model for the compass tape.
type AppModel struct {
	width  int
	height int

	smoothing       float64
	visible         int
	showNumeric     bool
	showDebug       bool
	showCalibration bool

	state   ui.SensorState
	errMsg  string
	samples int
	dropped int

	shared *shared
}

// New creates a new AppModel.
func New(cfg *config.Config, factory sensor.Factory, log *zap.SugaredLogger) AppModel {
	return AppModel{
		smoothing:   cfg.SmoothingFactor,
		visible:     cfg.VisibleDegrees,
		showNumeric: cfg.ShowNumericLabels,
		state:       ui.StateConnecting,
		shared: &shared{
			cfg:      cfg,
			log:      log,
			factory:  factory,
			animator: spring.New(config.TargetFPS),
			rates:    NewRateHistory(rateHistorySize),
		},
	}
}

// OnHeading registers a consumer for accepted readings. Register before
// Start; callbacks run on the UI goroutine and must not block.
func (m *AppModel) OnHeading(fn HeadingFunc) {
	m.shared.onHeading = append(m.shared.onHeading, fn)
}

// Start opens the first subscription. Must be called before p.Run(). An
// error means no source could be built; sensor failures after that arrive
// as status messages.
func (m *AppModel) Start(sender sensor.Sender) error {
	m.shared.sender = sender
	return m.subscribe()
}

// Stop cancels the active subscription.
func (m *AppModel) Stop() {
	if m.shared.sub != nil {
		m.shared.sub.Cancel()
		m.shared.sub = nil
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		rateCmd(),
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m.shared.animator.Update()
		return m, tickCmd()

	case RateMsg:
		m.shared.rates.Push(float64(m.shared.windowHits) / rateWindow.Seconds())
		m.shared.windowHits = 0
		return m, rateCmd()

	case sensor.StatusMsg:
		return m.handleStatus(msg), nil

	case sensor.SampleMsg:
		return m.handleSample(msg), nil
	}

	return m, nil
}

func (m AppModel) current(sub uint64) bool {
	return m.shared.sub != nil && m.shared.sub.ID() == sub
}

func (m AppModel) handleStatus(msg sensor.StatusMsg) AppModel {
	if !m.current(msg.Sub) {
		return m
	}
	if msg.Ready() {
		m.state = ui.StateLive
		m.errMsg = ""
		return m
	}

	switch {
	case errors.Is(msg.Err, sensor.ErrPermissionDenied) || (msg.Available && !msg.PermissionGranted):
		m.state = ui.StateDenied
	default:
		m.state = ui.StateUnavailable
	}
	err := msg.Err
	if err == nil {
		err = sensor.ErrSensorUnavailable
	}
	m.errMsg = err.Error()
	m.shared.log.Warnw("compass unavailable", "source", msg.Source, "error", err)
	return m
}

func (m AppModel) handleSample(msg sensor.SampleMsg) AppModel {
	// Late samples from a cancelled subscription must never touch the new
	// pipeline.
	if !m.current(msg.Sub) || m.state != ui.StateLive {
		return m
	}

	r, err := m.shared.pipeline.Process(msg.Vector, msg.Accuracy)
	if err != nil {
		m.dropped++
		m.shared.log.Debugw("sample dropped", "error", err, "x", msg.Vector.X, "y", msg.Vector.Y)
		return m
	}
	m.samples++
	m.shared.windowHits++

	if m.shared.rebase {
		m.shared.animator.Rebase(r.Target)
		m.shared.rebase = false
	} else {
		m.shared.animator.SetTarget(r.Target)
	}

	for _, fn := range m.shared.onHeading {
		fn(r)
	}
	return m
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.Stop()
		return m, tea.Quit

	case "+", "=":
		m = m.setSmoothing(m.smoothing + config.SmoothingStep)

	case "-", "_":
		m = m.setSmoothing(m.smoothing - config.SmoothingStep)

	case "]":
		m.visible = clampInt(m.visible+config.VisibleDegreesStep, config.MinVisibleDegrees, config.MaxVisibleDegrees)

	case "[":
		m.visible = clampInt(m.visible-config.VisibleDegreesStep, config.MinVisibleDegrees, config.MaxVisibleDegrees)

	case "n", "N":
		m.showNumeric = !m.showNumeric

	case "d", "D":
		m.showDebug = !m.showDebug

	case "c", "C":
		m.showCalibration = !m.showCalibration

	case "r", "R":
		m = m.resubscribe()
	}

	return m, nil
}

// setSmoothing changes the factor and starts a fresh subscription so the
// new factor never blends with state built under the old one.
func (m AppModel) setSmoothing(s float64) AppModel {
	s = math.Round(s*100) / 100
	s = math.Max(config.MinSmoothing, math.Min(config.MaxSmoothing, s))
	if s == m.smoothing {
		return m
	}
	m.smoothing = s
	m.shared.log.Infow("smoothing changed", "factor", s)
	return m.resubscribe()
}

func (m AppModel) resubscribe() AppModel {
	m.state = ui.StateConnecting
	m.errMsg = ""
	m.samples = 0
	m.dropped = 0
	_ = m.subscribe()
	return m
}

// subscribe cancels the active subscription and opens a new one with fresh
// pipeline state.
func (m *AppModel) subscribe() error {
	m.Stop()
	m.shared.windowHits = 0
	m.shared.rates.Reset()

	pipeline, err := heading.NewPipeline(m.smoothing)
	if err != nil {
		m.fail(err)
		return err
	}
	src, err := m.shared.factory()
	if err != nil {
		m.fail(err)
		return err
	}

	m.shared.pipeline = pipeline
	m.shared.rebase = true
	m.shared.sub = sensor.Subscribe(src, m.shared.sender, m.shared.cfg.UpdateInterval(), m.shared.log)
	m.shared.log.Infow("subscribed", "source", src.Name(), "subscription", m.shared.sub.ID(), "smoothing", m.smoothing)
	return nil
}

func (m *AppModel) fail(err error) {
	m.state = ui.StateUnavailable
	m.errMsg = err.Error()
	m.shared.log.Errorw("cannot subscribe", "error", err)
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing compass..."
	}

	menuBar := ui.RenderMenuBar(m.width, m.shared.cfg.Source)

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 5 {
		bodyH = 5
	}

	var body []string
	switch m.state {
	case ui.StateUnavailable, ui.StateDenied:
		body = append(body, ui.RenderErrorView(m.width, bodyH, m.errMsg))
	default:
		a := m.shared.animator
		cardinal := ""
		if a.Seeded() {
			cardinal = heading.CardinalDirection(a.Degrees())
		}
		tapeContent := tape.Render(ui.TapePanelInner(m.width), a.Position, m.visible, m.showNumeric)
		body = append(body, ui.RenderTapePanel(m.width, tape.HeadingLabel(a.Position, a.Seeded()), cardinal, tapeContent))

		if m.showDebug {
			body = append(body, ui.RenderDebugPanel(m.width, m.debugInfo()))
		}
	}
	if m.showCalibration {
		body = append(body, ui.RenderCalibration(m.width))
	}

	statusBar := ui.RenderStatusBar(m.width, ui.StatusInfo{
		State:      m.state,
		Samples:    m.samples,
		Dropped:    m.dropped,
		SampleRate: m.shared.rates.Last(),
		Smoothing:  m.smoothing,
		Visible:    m.visible,
	})

	return ui.ComposeLayout(menuBar, body, statusBar)
}

func (m AppModel) debugInfo() ui.DebugInfo {
	a := m.shared.animator
	info := ui.DebugInfo{
		Heading:    a.Degrees(),
		SampleRate: m.shared.rates.Last(),
		Smoothing:  m.smoothing,
		Visible:    m.visible,
		RateTrend:  m.shared.rates.Values(),
		HasReading: a.Seeded(),
	}
	if m.shared.pipeline != nil {
		if r, ok := m.shared.pipeline.Last(); ok {
			info.Direction = r.Cardinal
			info.Raw = r.Raw
			info.Target = r.Target
			info.Accuracy = r.Accuracy
		}
	}
	if info.Direction == "" && a.Seeded() {
		info.Direction = heading.CardinalDirection(a.Degrees())
	}
	return info
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func rateCmd() tea.Cmd {
	return tea.Tick(rateWindow, func(t time.Time) tea.Msg {
		return RateMsg(t)
	})
}
