package sensor

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

// NMEASource reads HDG or HDM heading sentences from a serial port, as sent
// by marine fluxgate compasses. When Port names a regular file the sentences
// are replayed from it at the update interval, looping at the end.
type NMEASource struct {
	cfg config.NMEAConfig
	log *zap.SugaredLogger

	open func(config.NMEAConfig) (io.ReadWriteCloser, error)

	mu     sync.Mutex
	port   io.Closer
	cancel context.CancelFunc
	replay bool
}

// NewNMEASource creates a source for the configured port or replay file.
func NewNMEASource(cfg config.NMEAConfig, log *zap.SugaredLogger) *NMEASource {
	return &NMEASource{cfg: cfg, log: log, open: openSerial}
}

func (s *NMEASource) Name() string { return config.SourceNMEA }

// Available checks the port or file exists.
func (s *NMEASource) Available() error {
	info, err := os.Stat(s.cfg.Port)
	if err != nil {
		if os.IsPermission(err) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(ErrSensorUnavailable, "nmea port: %v", err)
	}
	s.replay = info.Mode().IsRegular()
	return nil
}

// RequestPermission opens the port, which is where a tty without group
// access is refused.
func (s *NMEASource) RequestPermission() error {
	var (
		port io.ReadWriteCloser
		err  error
	)
	if s.replay {
		port, err = os.Open(s.cfg.Port)
	} else {
		port, err = s.open(s.cfg)
	}
	if err != nil {
		if os.IsPermission(err) || errors.Is(err, os.ErrPermission) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(ErrSensorUnavailable, "open %s: %v", s.cfg.Port, err)
	}

	s.mu.Lock()
	s.port = port
	s.mu.Unlock()
	return nil
}

// Start reads sentences in the background.
func (s *NMEASource) Start(e *Emitter, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return errors.Wrap(ErrSensorUnavailable, "nmea port not open")
	}
	r, ok := s.port.(io.Reader)
	if !ok {
		return errors.New("nmea port is not readable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if s.replay {
		go s.replayLoop(ctx, e, r, interval)
	} else {
		go s.readLoop(ctx, e, r)
	}
	return nil
}

func (s *NMEASource) readLoop(ctx context.Context, e *Emitter, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil || e.Cancelled() {
			return
		}
		s.handleLine(e, scanner.Text())
	}
	if ctx.Err() != nil {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	e.Fail(errors.Wrapf(ErrSensorUnavailable, "nmea stream ended: %v", err))
}

func (s *NMEASource) replayLoop(ctx context.Context, e *Emitter, r io.Reader, interval time.Duration) {
	if interval <= 0 {
		interval = config.DefaultUpdateInterval
	}
	lines, err := readHeadingLines(r)
	if err != nil || len(lines) == 0 {
		e.Fail(errors.Wrapf(ErrSensorUnavailable, "replay file %s has no heading sentences", s.cfg.Port))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(lines) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Cancelled() {
				return
			}
			s.handleLine(e, lines[i])
		}
	}
}

func (s *NMEASource) handleLine(e *Emitter, line string) {
	h, err := headingFromSentence(line)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedSentence) {
			s.log.Debugw("nmea sentence dropped", "line", line, "error", err)
		}
		return
	}
	v := heading.VectorForHeading(h)
	e.Sample(v.X, v.Y, v.Z)
}

// Stop ends the read loop and closes the port.
func (s *NMEASource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
}

// readHeadingLines keeps only the lines that carry a usable heading.
func readHeadingLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := headingFromSentence(line); err == nil {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func openSerial(cfg config.NMEAConfig) (io.ReadWriteCloser, error) {
	return serial.Open(serial.OpenOptions{
		PortName:        cfg.Port,
		BaudRate:        uint(cfg.BaudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
}
