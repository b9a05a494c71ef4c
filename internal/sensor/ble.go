package sensor

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"compass-tape.klederson.com/internal/config"
)

// bleConnectTimeout bounds how long Start waits to find the peripheral.
const bleConnectTimeout = 15 * time.Second

// BLESource reads a magnetometer characteristic from a BLE peripheral that
// notifies x,y,z values.
type BLESource struct {
	cfg     config.BLEConfig
	adapter *bluetooth.Adapter
	log     *zap.SugaredLogger

	service bluetooth.UUID
	char    bluetooth.UUID

	mu      sync.Mutex
	device  *bluetooth.Device
	stopped bool
}

// NewBLESource creates a source for the configured peripheral.
func NewBLESource(cfg config.BLEConfig, log *zap.SugaredLogger) (*BLESource, error) {
	service, err := bluetooth.ParseUUID(cfg.ServiceUUID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ble service uuid %q", cfg.ServiceUUID)
	}
	char, err := bluetooth.ParseUUID(cfg.CharacteristicUUID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ble characteristic uuid %q", cfg.CharacteristicUUID)
	}
	return &BLESource{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
		log:     log,
		service: service,
		char:    char,
	}, nil
}

func (s *BLESource) Name() string { return config.SourceBLE }

// Available enables the default adapter. A missing adapter or a BlueZ
// permission error is classified accordingly.
func (s *BLESource) Available() error {
	if err := s.adapter.Enable(); err != nil {
		if isPermissionError(err) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(ErrSensorUnavailable, "enable BLE adapter: %v", err)
	}
	return nil
}

// RequestPermission is a no-op: BlueZ decides access when the adapter is
// enabled, which Available already did.
func (s *BLESource) RequestPermission() error {
	return nil
}

// Start scans for the peripheral and subscribes to its notifications in the
// background. Connection failures end the stream through the emitter.
func (s *BLESource) Start(e *Emitter, _ time.Duration) error {
	go func() {
		if err := s.connect(e); err != nil {
			e.Fail(err)
		}
	}()
	return nil
}

func (s *BLESource) connect(e *Emitter) error {
	found := make(chan bluetooth.ScanResult, 1)
	go func() {
		err := s.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !strings.EqualFold(result.LocalName(), s.cfg.DeviceName) {
				return
			}
			select {
			case found <- result:
			default:
			}
			_ = adapter.StopScan()
		})
		if err != nil {
			s.log.Warnw("ble scan ended", "error", err)
		}
	}()

	var result bluetooth.ScanResult
	select {
	case result = <-found:
	case <-time.After(bleConnectTimeout):
		_ = s.adapter.StopScan()
		return errors.Wrapf(ErrSensorUnavailable, "no peripheral named %q found", s.cfg.DeviceName)
	}
	if e.Cancelled() {
		return nil
	}
	s.log.Infow("ble peripheral found", "address", result.Address.String(), "rssi", result.RSSI)

	device, err := s.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return errors.Wrapf(ErrSensorUnavailable, "connect %s: %v", result.Address.String(), err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		_ = device.Disconnect()
		return nil
	}
	s.device = &device
	s.mu.Unlock()

	services, err := device.DiscoverServices([]bluetooth.UUID{s.service})
	if err != nil || len(services) == 0 {
		return errors.Wrapf(ErrSensorUnavailable, "service %s not found: %v", s.service.String(), err)
	}
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{s.char})
	if err != nil || len(chars) == 0 {
		return errors.Wrapf(ErrSensorUnavailable, "characteristic %s not found: %v", s.char.String(), err)
	}

	return chars[0].EnableNotifications(func(buf []byte) {
		v, err := decodeBLEPayload(buf)
		if err != nil {
			s.log.Debugw("ble notification dropped", "error", err)
			return
		}
		e.Sample(v.X, v.Y, v.Z)
	})
}

// Stop halts scanning and disconnects from the peripheral.
func (s *BLESource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	_ = s.adapter.StopScan()
	if s.device != nil {
		_ = s.device.Disconnect()
		s.device = nil
	}
}

func isPermissionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") ||
		strings.Contains(msg, "not authorized") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "operation not permitted")
}
