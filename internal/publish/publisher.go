package publish

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	quiesceMs      = 250
)

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Payload is the JSON schema published for each reading.
// time is RFC3339 with nanoseconds.
type Payload struct {
	Heading  float64 `json:"heading"`
	Target   float64 `json:"target"`
	Cardinal string  `json:"cardinal"`
	Accuracy float64 `json:"accuracy"`
	Time     string  `json:"time"`
}

// Publisher forwards accepted readings to an MQTT topic, at most one per
// interval.
type Publisher struct {
	topic    string
	interval time.Duration
	log      *zap.SugaredLogger
	client   Client
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// New creates a publisher for the configured broker. Call Connect before
// Publish.
func New(cfg *config.Config, log *zap.SugaredLogger) *Publisher {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Publish.Broker).
		SetClientID(cfg.Publish.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	return newPublisher(mqtt.NewClient(opts), cfg.Publish.Topic, cfg.PublishInterval(), log)
}

func newPublisher(client Client, topic string, interval time.Duration, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		topic:    topic,
		interval: interval,
		log:      log,
		client:   client,
		now:      time.Now,
	}
}

// Connect dials the broker.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("mqtt publisher connect timed out")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "mqtt publisher connect failed")
	}
	p.log.Infow("mqtt publisher connected", "topic", p.topic)
	return nil
}

// Publish sends r unless the previous publish was less than one interval
// ago. It reports whether a message was handed to the client. Delivery
// errors are logged from a background goroutine so the caller never waits
// on the broker.
func (p *Publisher) Publish(r heading.Reading) bool {
	now := p.now()

	p.mu.Lock()
	if !p.last.IsZero() && now.Sub(p.last) < p.interval {
		p.mu.Unlock()
		return false
	}
	p.last = now
	p.mu.Unlock()

	b, err := json.Marshal(Payload{
		Heading:  r.Heading,
		Target:   r.Target,
		Cardinal: r.Cardinal,
		Accuracy: r.Accuracy,
		Time:     now.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		p.log.Errorw("cannot encode heading payload", "error", err)
		return false
	}

	token := p.client.Publish(p.topic, 0, false, b)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			p.log.Warnw("mqtt publish timed out", "topic", p.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.log.Errorw("mqtt publish failed", "topic", p.topic, "error", err)
		}
	}()
	return true
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(quiesceMs)
}
