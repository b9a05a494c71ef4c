package sensor

import (
	"context"
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"compass-tape.klederson.com/internal/config"
)

// QMC5883L registers.
const (
	qmcRegData    = 0x00
	qmcRegStatus  = 0x06
	qmcRegControl = 0x09
	qmcRegReset   = 0x0B
	qmcRegChipID  = 0x0D

	qmcChipID = 0xFF
	// Continuous mode, 50 Hz output, 2 G range, 128x oversampling.
	qmcControl = 0x85
	// Recommended SET/RESET period.
	qmcResetPeriod = 0x01

	qmcStatusReady = 0x01
)

// register is the subset of i2c.Dev the QMC5883L driver needs.
type register interface {
	Tx(w, r []byte) error
}

// I2CSource drives a QMC5883L magnetometer directly on a Linux I2C bus.
type I2CSource struct {
	cfg config.I2CConfig
	log *zap.SugaredLogger

	mu     sync.Mutex
	bus    i2c.BusCloser
	dev    register
	cancel context.CancelFunc
}

// NewI2CSource creates a source for the configured bus and address.
func NewI2CSource(cfg config.I2CConfig, log *zap.SugaredLogger) *I2CSource {
	return &I2CSource{cfg: cfg, log: log}
}

func (s *I2CSource) Name() string { return config.SourceI2C }

// Available initializes the host drivers and opens the bus.
func (s *I2CSource) Available() error {
	if _, err := host.Init(); err != nil {
		return errors.Wrapf(ErrSensorUnavailable, "periph host init: %v", err)
	}
	bus, err := i2creg.Open(s.cfg.Bus)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(ErrSensorUnavailable, "open i2c bus %q: %v", s.cfg.Bus, err)
	}

	s.mu.Lock()
	s.bus = bus
	s.dev = &i2c.Dev{Bus: bus, Addr: s.cfg.Addr}
	s.mu.Unlock()
	return nil
}

// RequestPermission probes the chip ID, which is the first transaction the
// kernel can refuse.
func (s *I2CSource) RequestPermission() error {
	s.mu.Lock()
	dev := s.dev
	s.mu.Unlock()
	if dev == nil {
		return errors.Wrap(ErrSensorUnavailable, "i2c bus not open")
	}

	id, err := readChipID(dev)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(ErrSensorUnavailable, "probe 0x%02X: %v", s.cfg.Addr, err)
	}
	if id != qmcChipID {
		return errors.Wrapf(ErrSensorUnavailable, "unexpected chip id 0x%02X at 0x%02X", id, s.cfg.Addr)
	}
	return nil
}

// Start configures continuous mode and polls at interval.
func (s *I2CSource) Start(e *Emitter, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return errors.Wrap(ErrSensorUnavailable, "i2c bus not open")
	}
	if err := configureQMC(s.dev); err != nil {
		return err
	}
	if interval <= 0 {
		interval = config.DefaultUpdateInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx, e, s.dev, interval)
	return nil
}

func (s *I2CSource) loop(ctx context.Context, e *Emitter, dev register, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.Cancelled() {
				return
			}
			x, y, z, ready, err := readQMC(dev)
			if err != nil {
				failures++
				s.log.Debugw("i2c read failed", "error", err, "failures", failures)
				if failures >= 10 {
					e.Fail(errors.Wrap(ErrSensorUnavailable, err.Error()))
					return
				}
				continue
			}
			failures = 0
			if ready {
				e.Sample(float64(x), float64(y), float64(z))
			}
		}
	}
}

// Stop ends polling and closes the bus.
func (s *I2CSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.bus != nil {
		_ = s.bus.Close()
		s.bus = nil
		s.dev = nil
	}
}

func readChipID(dev register) (byte, error) {
	buf := make([]byte, 1)
	if err := dev.Tx([]byte{qmcRegChipID}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func configureQMC(dev register) error {
	if err := dev.Tx([]byte{qmcRegReset, qmcResetPeriod}, nil); err != nil {
		return errors.Wrap(err, "qmc5883l set/reset period")
	}
	if err := dev.Tx([]byte{qmcRegControl, qmcControl}, nil); err != nil {
		return errors.Wrap(err, "qmc5883l control")
	}
	return nil
}

// readQMC reads status and the three axes in one burst. ready is false when
// no new measurement is available yet.
func readQMC(dev register) (x, y, z int16, ready bool, err error) {
	buf := make([]byte, 7)
	if err = dev.Tx([]byte{qmcRegData}, buf); err != nil {
		return 0, 0, 0, false, err
	}
	x = int16(binary.LittleEndian.Uint16(buf[0:2]))
	y = int16(binary.LittleEndian.Uint16(buf[2:4]))
	z = int16(binary.LittleEndian.Uint16(buf[4:6]))
	ready = buf[qmcRegStatus]&qmcStatusReady != 0
	return x, y, z, ready, nil
}
