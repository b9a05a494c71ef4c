package sensor

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttQuiesceMs      = 250
)

// MQTTSource subscribes to a broker topic carrying JSON magnetometer samples,
// such as the one an I2C producer publishes on a Raspberry Pi.
type MQTTSource struct {
	cfg config.MQTTConfig
	log *zap.SugaredLogger

	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client
}

// NewMQTTSource creates a subscriber for the configured broker and topic.
func NewMQTTSource(cfg config.MQTTConfig, log *zap.SugaredLogger) *MQTTSource {
	return &MQTTSource{cfg: cfg, log: log, newClient: mqtt.NewClient}
}

func (s *MQTTSource) Name() string { return config.SourceMQTT }

// Available connects to the broker. The connection is kept for Start.
func (s *MQTTSource) Available() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true).
		SetConnectionLostHandler(s.connectionLost)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username).SetPassword(s.cfg.Password)
	}

	client := s.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return errors.Wrapf(ErrSensorUnavailable, "connect to %s timed out", s.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return classifyConnectError(s.cfg.Broker, err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
	s.log.Infow("mqtt connected", "broker", s.cfg.Broker)
	return nil
}

// RequestPermission is settled by the broker's CONNACK in Available.
func (s *MQTTSource) RequestPermission() error {
	return nil
}

// Start subscribes to the topic. The broker decides the cadence; interval
// is ignored.
func (s *MQTTSource) Start(e *Emitter, _ time.Duration) error {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return errors.Wrap(ErrSensorUnavailable, "mqtt client not connected")
	}

	token := client.Subscribe(s.cfg.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		v, err := decodeMQTTPayload(msg.Payload())
		if err != nil {
			s.log.Debugw("mqtt payload dropped", "topic", msg.Topic(), "error", err)
			return
		}
		e.Sample(v.X, v.Y, v.Z)
	})
	if !token.WaitTimeout(mqttConnectTimeout) {
		return errors.Errorf("subscribe to %s timed out", s.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		if errors.Is(err, packets.ErrorRefusedNotAuthorised) {
			return errors.Wrap(ErrPermissionDenied, err.Error())
		}
		return errors.Wrapf(err, "subscribe to %s", s.cfg.Topic)
	}
	return nil
}

func (s *MQTTSource) connectionLost(_ mqtt.Client, err error) {
	s.log.Warnw("mqtt connection lost", "error", err)
}

// Stop unsubscribes and disconnects.
func (s *MQTTSource) Stop() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return
	}
	client.Unsubscribe(s.cfg.Topic)
	client.Disconnect(mqttQuiesceMs)
}

// classifyConnectError maps CONNACK refusals for bad credentials onto
// ErrPermissionDenied and everything else onto ErrSensorUnavailable.
func classifyConnectError(broker string, err error) error {
	if errors.Is(err, packets.ErrorRefusedNotAuthorised) || errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) {
		return errors.Wrap(ErrPermissionDenied, err.Error())
	}
	return errors.Wrapf(ErrSensorUnavailable, "connect to %s: %v", broker, err)
}
