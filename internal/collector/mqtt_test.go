package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublisherConfigDefaults(t *testing.T) {
	cfg := PublisherConfig{Broker: "tcp://broker:1883"}
	cfg.withDefaults()

	assert.Equal(t, "surface-station", cfg.ClientID)
	assert.Equal(t, "surface/movement", cfg.MovementTopic)
	assert.Equal(t, "surface/captures", cfg.CaptureTopic)
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
}

func TestPublisherConfigOverridesKept(t *testing.T) {
	cfg := PublisherConfig{
		Broker:         "tcp://broker:1883",
		ClientID:       "station-7",
		MovementTopic:  "mill/line7/movement",
		CaptureTopic:   "mill/line7/captures",
		PublishTimeout: 2 * time.Second,
	}
	cfg.withDefaults()

	assert.Equal(t, "station-7", cfg.ClientID)
	assert.Equal(t, "mill/line7/movement", cfg.MovementTopic)
	assert.Equal(t, "mill/line7/captures", cfg.CaptureTopic)
	assert.Equal(t, 2*time.Second, cfg.PublishTimeout)
}

func TestNewPublisherUnreachableBroker(t *testing.T) {
	_, err := NewPublisher(PublisherConfig{
		Broker:         "tcp://127.0.0.1:1",
		PublishTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}
