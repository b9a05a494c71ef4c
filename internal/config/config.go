package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	// Heading pipeline
	DefaultSmoothing      = 0.2                   // EMA factor (20% new, 80% old)
	DefaultUpdateInterval = 16 * time.Millisecond // ~60 Hz sample cadence
	PlaceholderAccuracy   = 0.0                   // magnetometer accuracy is not exposed by most sources

	// Tape display
	DegreeWidth           = 4   // pixels per degree in the PNG tape
	DefaultVisibleDegrees = 120 // arc shown across the tape
	MinVisibleDegrees     = 60
	MaxVisibleDegrees     = 180
	VisibleDegreesStep    = 10
	TickStep              = 5   // degrees between ticks
	NumericLabelStep      = 30  // degrees between numeric labels
	DefaultHeight         = 200 // PNG tape height in pixels
	TargetFPS             = 60  // animation frames per second

	// Spring animation (damping, stiffness, mass)
	SpringDamping   = 20.0
	SpringStiffness = 100.0
	SpringMass      = 0.5

	// Interactive smoothing control
	MinSmoothing  = 0.05
	MaxSmoothing  = 1.0
	SmoothingStep = 0.05

	// Log file rotation
	LogMaxSizeMB  = 5
	LogMaxBackups = 3

	// App
	AppName    = "COMPASS-TAPE"
	AppVersion = "1.0"
)

// Source names accepted in the config file and on the command line.
const (
	SourceDemo = "demo"
	SourceBLE  = "ble"
	SourceMQTT = "mqtt"
	SourceNMEA = "nmea"
	SourceI2C  = "i2c"
)

// Config is the runtime configuration. Zero values are not meaningful; start
// from Default() and overlay a file and flags.
type Config struct {
	Source            string  `yaml:"source"`
	SmoothingFactor   float64 `yaml:"smoothing_factor"`
	UpdateIntervalMs  int     `yaml:"update_interval_ms"`
	VisibleDegrees    int     `yaml:"visible_degrees"`
	ShowNumericLabels bool    `yaml:"show_numeric_labels"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	Demo    DemoConfig    `yaml:"demo"`
	BLE     BLEConfig     `yaml:"ble"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	NMEA    NMEAConfig    `yaml:"nmea"`
	I2C     I2CConfig     `yaml:"i2c"`
	Web     WebConfig     `yaml:"web"`
	Publish PublishConfig `yaml:"publish"`
}

// DemoConfig tunes the simulated magnetometer.
type DemoConfig struct {
	RotationDegPerSec float64 `yaml:"rotation_deg_per_sec"`
	Noise             float64 `yaml:"noise"`
	// Fail forces a lifecycle failure: "", "unavailable" or "denied".
	Fail string `yaml:"fail"`
}

// BLEConfig selects a peripheral that notifies x,y,z magnetometer values.
type BLEConfig struct {
	DeviceName         string `yaml:"device_name"`
	ServiceUUID        string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
}

// MQTTConfig describes a broker topic carrying JSON magnetometer payloads.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NMEAConfig names a serial port or a replay file with HDG/HDM sentences.
type NMEAConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// I2CConfig addresses a QMC5883L magnetometer.
type I2CConfig struct {
	Bus  string `yaml:"bus"`
	Addr uint16 `yaml:"addr"`
}

// WebConfig enables the HTTP/websocket surface when Addr is set.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// PublishConfig enables the MQTT heading publisher when Broker is set.
type PublishConfig struct {
	Broker     string `yaml:"broker"`
	ClientID   string `yaml:"client_id"`
	Topic      string `yaml:"topic"`
	IntervalMs int    `yaml:"interval_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source:            SourceDemo,
		SmoothingFactor:   DefaultSmoothing,
		UpdateIntervalMs:  int(DefaultUpdateInterval / time.Millisecond),
		VisibleDegrees:    DefaultVisibleDegrees,
		ShowNumericLabels: true,
		LogFile:           "compass-tape.log",
		LogLevel:          "info",
		Demo: DemoConfig{
			RotationDegPerSec: 12,
			Noise:             1.5,
		},
		BLE: BLEConfig{
			DeviceName: "Compass",
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://localhost:1883",
			ClientID: "compass-tape-subscriber",
			Topic:    "inertial/mag/hmc",
		},
		NMEA: NMEAConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 4800,
		},
		I2C: I2CConfig{
			Addr: 0x0D,
		},
		Publish: PublishConfig{
			ClientID:   "compass-tape-publisher",
			Topic:      "compass/heading",
			IntervalMs: 100,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error

	if math.IsNaN(c.SmoothingFactor) || c.SmoothingFactor < 0 || c.SmoothingFactor > 1 {
		err = multierr.Append(err, fmt.Errorf("smoothing_factor %v outside [0, 1]", c.SmoothingFactor))
	}
	if c.UpdateIntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("update_interval_ms must be positive, got %d", c.UpdateIntervalMs))
	}
	if c.VisibleDegrees < MinVisibleDegrees || c.VisibleDegrees > MaxVisibleDegrees {
		err = multierr.Append(err, fmt.Errorf("visible_degrees %d outside [%d, %d]",
			c.VisibleDegrees, MinVisibleDegrees, MaxVisibleDegrees))
	}

	switch c.Source {
	case SourceDemo:
		switch c.Demo.Fail {
		case "", "unavailable", "denied":
		default:
			err = multierr.Append(err, fmt.Errorf("demo.fail %q must be empty, \"unavailable\" or \"denied\"", c.Demo.Fail))
		}
	case SourceBLE:
		if c.BLE.DeviceName == "" {
			err = multierr.Append(err, fmt.Errorf("ble.device_name is required"))
		}
		if c.BLE.ServiceUUID == "" || c.BLE.CharacteristicUUID == "" {
			err = multierr.Append(err, fmt.Errorf("ble.service_uuid and ble.characteristic_uuid are required"))
		}
	case SourceMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			err = multierr.Append(err, fmt.Errorf("mqtt.broker and mqtt.topic are required"))
		}
	case SourceNMEA:
		if c.NMEA.Port == "" {
			err = multierr.Append(err, fmt.Errorf("nmea.port is required"))
		}
		if c.NMEA.BaudRate <= 0 {
			err = multierr.Append(err, fmt.Errorf("nmea.baud_rate must be positive"))
		}
	case SourceI2C:
		if c.I2C.Addr == 0 || c.I2C.Addr > 0x7F {
			err = multierr.Append(err, fmt.Errorf("i2c.addr 0x%X is not a 7-bit address", c.I2C.Addr))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown source %q", c.Source))
	}

	if c.Publish.Broker != "" {
		if c.Publish.Topic == "" {
			err = multierr.Append(err, fmt.Errorf("publish.topic is required when publish.broker is set"))
		}
		if c.Publish.IntervalMs < 0 {
			err = multierr.Append(err, fmt.Errorf("publish.interval_ms must not be negative"))
		}
	}

	return err
}

// UpdateInterval returns the advisory sample interval.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.UpdateIntervalMs) * time.Millisecond
}

// PublishInterval returns the minimum spacing between MQTT publishes.
func (c *Config) PublishInterval() time.Duration {
	return time.Duration(c.Publish.IntervalMs) * time.Millisecond
}
