package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/motion"
)

// PublisherConfig holds the MQTT transport settings.
type PublisherConfig struct {
	// Broker is the broker URL, e.g. "tcp://127.0.0.1:1883".
	Broker   string
	ClientID string

	// MovementTopic receives plain movement records; CaptureTopic receives
	// records that carry capture images.
	MovementTopic string
	CaptureTopic  string

	// PublishTimeout bounds each publish. Zero means 10 seconds.
	PublishTimeout time.Duration
}

func (c *PublisherConfig) withDefaults() {
	if c.ClientID == "" {
		c.ClientID = "surface-station"
	}
	if c.MovementTopic == "" {
		c.MovementTopic = "surface/movement"
	}
	if c.CaptureTopic == "" {
		c.CaptureTopic = "surface/captures"
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 10 * time.Second
	}
}

// Publisher delivers telemetry records over MQTT as JSON messages.
type Publisher struct {
	cfg    PublisherConfig
	client mqtt.Client
}

var _ motion.Transport = (*Publisher)(nil)

// NewPublisher connects to the broker and returns a publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	cfg.withDefaults()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(mqtt.Client) {
			monitoring.Logf("mqtt: connected to %s", cfg.Broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			monitoring.Logf("mqtt: connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.PublishTimeout) {
		return nil, fmt.Errorf("timed out connecting to broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s: %w", cfg.Broker, err)
	}

	return &Publisher{cfg: cfg, client: client}, nil
}

// Send publishes the record to the movement or capture topic at QoS 1.
func (p *Publisher) Send(ctx context.Context, rec *motion.TelemetryRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry record: %w", err)
	}

	topic := p.cfg.MovementTopic
	if len(rec.Images) > 0 {
		topic = p.cfg.CaptureTopic
	}

	token := p.client.Publish(topic, 1, false, payload)

	timeout := p.cfg.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
