package sensor

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
)

// FromConfig returns a factory building the configured source. Each call of
// the factory yields a fresh Source.
func FromConfig(cfg *config.Config, log *zap.SugaredLogger) Factory {
	return func() (Source, error) {
		switch cfg.Source {
		case config.SourceDemo:
			return NewMockSource(cfg.Demo), nil
		case config.SourceBLE:
			return NewBLESource(cfg.BLE, log)
		case config.SourceMQTT:
			return NewMQTTSource(cfg.MQTT, log), nil
		case config.SourceNMEA:
			return NewNMEASource(cfg.NMEA, log), nil
		case config.SourceI2C:
			return NewI2CSource(cfg.I2C, log), nil
		}
		return nil, errors.Errorf("unknown source %q", cfg.Source)
	}
}
