// Package config holds the station's runtime configuration. All fields are
// optional pointers so a partial JSON file only overrides what it names; the
// Get* accessors supply the defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/surface.report/internal/units"
)

// StationConfig is the root configuration for the measurement station.
type StationConfig struct {
	// Sampling and smoothing
	SampleInterval *string `json:"sample_interval,omitempty"` // duration string like "15ms"
	ReportInterval *string `json:"report_interval,omitempty"` // duration string like "1s"
	WindowSize     *int    `json:"window_size,omitempty"`
	Units          *string `json:"units,omitempty"`

	// Capture scheduling
	MaxDisplacementPerFrame *float64 `json:"max_displacement_per_frame,omitempty"` // cm
	MinCaptureInterval      *string  `json:"min_capture_interval,omitempty"`
	MaxCaptureInterval      *string  `json:"max_capture_interval,omitempty"`

	// Transmission
	QueueDepth     *int    `json:"queue_depth,omitempty"`
	SendMaxRetries *int    `json:"send_max_retries,omitempty"`
	SendTimeout    *string `json:"send_timeout,omitempty"`
	SendBackoff    *string `json:"send_backoff,omitempty"`
	DrainGrace     *string `json:"drain_grace,omitempty"`

	// Sensor
	SensorMaxRetries  *int    `json:"sensor_max_retries,omitempty"`
	SensorBackoff     *string `json:"sensor_backoff,omitempty"`
	SensorReadTimeout *string `json:"sensor_read_timeout,omitempty"`
	SerialPort        *string `json:"serial_port,omitempty"`
	SerialBaud        *int    `json:"serial_baud,omitempty"`

	// Collector transport: "http" or "mqtt"
	Transport         *string `json:"transport,omitempty"`
	CollectorURL      *string `json:"collector_url,omitempty"`
	MQTTBroker        *string `json:"mqtt_broker,omitempty"`
	MQTTClientID      *string `json:"mqtt_client_id,omitempty"`
	MQTTMovementTopic *string `json:"mqtt_movement_topic,omitempty"`
	MQTTCaptureTopic  *string `json:"mqtt_capture_topic,omitempty"`

	// Local archive
	DBPath *string `json:"db_path,omitempty"`
}

// EmptyStationConfig returns a StationConfig with all fields unset.
// The Get* accessors return built-in defaults for unset fields.
func EmptyStationConfig() *StationConfig {
	return &StationConfig{}
}

// LoadStationConfig loads a StationConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadStationConfig(path string) (*StationConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyStationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks every set field for sanity. Unset fields are always valid
// because their defaults are.
func (c *StationConfig) Validate() error {
	durations := map[string]*string{
		"sample_interval":      c.SampleInterval,
		"report_interval":      c.ReportInterval,
		"min_capture_interval": c.MinCaptureInterval,
		"max_capture_interval": c.MaxCaptureInterval,
		"send_timeout":         c.SendTimeout,
		"send_backoff":         c.SendBackoff,
		"drain_grace":          c.DrainGrace,
		"sensor_backoff":       c.SensorBackoff,
		"sensor_read_timeout":  c.SensorReadTimeout,
	}
	for name, v := range durations {
		if v == nil {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if c.WindowSize != nil && *c.WindowSize < 1 {
		return fmt.Errorf("window_size must be >= 1, got %d", *c.WindowSize)
	}
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}
	if c.MaxDisplacementPerFrame != nil && *c.MaxDisplacementPerFrame <= 0 {
		return fmt.Errorf("max_displacement_per_frame must be positive, got %v", *c.MaxDisplacementPerFrame)
	}
	if c.QueueDepth != nil && *c.QueueDepth < 1 {
		return fmt.Errorf("queue_depth must be >= 1, got %d", *c.QueueDepth)
	}
	if c.SendMaxRetries != nil && *c.SendMaxRetries < 0 {
		return fmt.Errorf("send_max_retries must be >= 0, got %d", *c.SendMaxRetries)
	}
	if c.SensorMaxRetries != nil && *c.SensorMaxRetries < 1 {
		return fmt.Errorf("sensor_max_retries must be >= 1, got %d", *c.SensorMaxRetries)
	}
	if c.SerialBaud != nil && *c.SerialBaud <= 0 {
		return fmt.Errorf("serial_baud must be positive, got %d", *c.SerialBaud)
	}
	if c.Transport != nil {
		switch *c.Transport {
		case "http", "mqtt":
		default:
			return fmt.Errorf("transport must be http or mqtt, got %q", *c.Transport)
		}
		if *c.Transport == "mqtt" && (c.MQTTBroker == nil || *c.MQTTBroker == "") {
			return fmt.Errorf("mqtt transport requires mqtt_broker")
		}
	}

	min := c.GetMinCaptureInterval()
	max := c.GetMaxCaptureInterval()
	if min > max {
		return fmt.Errorf("min_capture_interval %s exceeds max_capture_interval %s", min, max)
	}

	return nil
}

func duration(v *string, fallback time.Duration) time.Duration {
	if v == nil {
		return fallback
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fallback
	}
	return d
}

// Sampling at 66 Hz keeps worst-case travel per sample well under one
// millimetre at full line speed.
func (c *StationConfig) GetSampleInterval() time.Duration {
	return duration(c.SampleInterval, 15*time.Millisecond)
}

func (c *StationConfig) GetReportInterval() time.Duration {
	return duration(c.ReportInterval, time.Second)
}

func (c *StationConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 3
	}
	return *c.WindowSize
}

func (c *StationConfig) GetUnits() string {
	if c.Units == nil {
		return units.CMPS
	}
	return *c.Units
}

// GetMaxDisplacementPerFrame defaults to the cameras' vertical view field so
// consecutive frames tile the surface without gaps.
func (c *StationConfig) GetMaxDisplacementPerFrame() float64 {
	if c.MaxDisplacementPerFrame == nil {
		return 25
	}
	return *c.MaxDisplacementPerFrame
}

func (c *StationConfig) GetMinCaptureInterval() time.Duration {
	return duration(c.MinCaptureInterval, 250*time.Millisecond)
}

func (c *StationConfig) GetMaxCaptureInterval() time.Duration {
	return duration(c.MaxCaptureInterval, 10*time.Second)
}

func (c *StationConfig) GetQueueDepth() int {
	if c.QueueDepth == nil {
		return 256
	}
	return *c.QueueDepth
}

func (c *StationConfig) GetSendMaxRetries() int {
	if c.SendMaxRetries == nil {
		return 3
	}
	return *c.SendMaxRetries
}

func (c *StationConfig) GetSendTimeout() time.Duration {
	return duration(c.SendTimeout, 5*time.Second)
}

func (c *StationConfig) GetSendBackoff() time.Duration {
	return duration(c.SendBackoff, 500*time.Millisecond)
}

func (c *StationConfig) GetDrainGrace() time.Duration {
	return duration(c.DrainGrace, 5*time.Second)
}

func (c *StationConfig) GetSensorMaxRetries() int {
	if c.SensorMaxRetries == nil {
		return 5
	}
	return *c.SensorMaxRetries
}

func (c *StationConfig) GetSensorBackoff() time.Duration {
	return duration(c.SensorBackoff, time.Second)
}

func (c *StationConfig) GetSensorReadTimeout() time.Duration {
	return duration(c.SensorReadTimeout, time.Second)
}

func (c *StationConfig) GetSerialPort() string {
	if c.SerialPort == nil {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

func (c *StationConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

func (c *StationConfig) GetTransport() string {
	if c.Transport == nil {
		return "http"
	}
	return *c.Transport
}

func (c *StationConfig) GetCollectorURL() string {
	if c.CollectorURL == nil {
		return "http://127.0.0.1:5000"
	}
	return *c.CollectorURL
}

func (c *StationConfig) GetMQTTBroker() string {
	if c.MQTTBroker == nil {
		return ""
	}
	return *c.MQTTBroker
}

func (c *StationConfig) GetMQTTClientID() string {
	if c.MQTTClientID == nil {
		return "surface-station"
	}
	return *c.MQTTClientID
}

func (c *StationConfig) GetMQTTMovementTopic() string {
	if c.MQTTMovementTopic == nil {
		return "surface/movement"
	}
	return *c.MQTTMovementTopic
}

func (c *StationConfig) GetMQTTCaptureTopic() string {
	if c.MQTTCaptureTopic == nil {
		return "surface/captures"
	}
	return *c.MQTTCaptureTopic
}

func (c *StationConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "surface.db"
	}
	return *c.DBPath
}
