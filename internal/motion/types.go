// Package motion implements the real-time acquisition pipeline for the
// surface measurement station: raw velocity sampling, moving-average
// smoothing, displacement integration, capture scheduling and the
// transmission hand-off to the remote collector.
package motion

import (
	"context"
	"time"
)

// VelocitySample is a single raw reading from the velocity sensor.
// Values are surface speeds in cm/s; timestamps must be monotonically
// non-decreasing within one source.
type VelocitySample struct {
	Timestamp time.Time
	Value     float64
}

// FilteredVelocity is the smoothed output of the MovingAverageFilter.
type FilteredVelocity struct {
	Timestamp time.Time
	Value     float64
}

// CaptureEvent records the decision to fire the cameras. Displacement is the
// accumulated surface travel (cm) since the previous successful capture at
// the moment the trigger condition was met.
type CaptureEvent struct {
	FrameID      string    `json:"frame_id"`
	Timestamp    time.Time `json:"timestamp"`
	Displacement float64   `json:"displacement"`
}

// Picture holds the exposure metadata (and optionally the raw payload) of a
// single camera position within a capture.
type Picture struct {
	Position         string  `json:"position"`
	ISO              int     `json:"iso"`
	ExposureTime     float64 `json:"exposure_time"`
	DiaphragmOpening float64 `json:"diaphragm_opening"`
	Payload          []byte  `json:"picture,omitempty"`
}

// ImageMetadata describes one completed capture under one light type.
// A full capture cycle produces one ImageMetadata per light.
type ImageMetadata struct {
	FrameID    string    `json:"frame_id"`
	Light      string    `json:"light"`
	CapturedAt time.Time `json:"creation_date"`
	Pictures   []Picture `json:"pictures"`
}

// TelemetryRecord is the unit handed to the Transport: a movement
// measurement, optionally carrying the image metadata of the capture that
// produced it. Records are created by the Coordinator and destroyed once
// delivered (or dropped under backpressure).
type TelemetryRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Velocity     float64         `json:"velocity"`
	Displacement float64         `json:"displacement"`
	Images       []ImageMetadata `json:"images,omitempty"`
}

// VelocitySource abstracts the physical velocity sensor.
type VelocitySource interface {
	// Read returns the next raw velocity sample. Implementations should
	// honour ctx cancellation for blocking reads.
	Read(ctx context.Context) (VelocitySample, error)
}

// ImageCapture abstracts the camera rig. Capture performs a full capture
// cycle for the given trigger and returns one ImageMetadata per light type.
type ImageCapture interface {
	Capture(ctx context.Context, ev CaptureEvent) ([]ImageMetadata, error)
}

// Transport delivers telemetry records to the remote collector.
type Transport interface {
	Send(ctx context.Context, rec *TelemetryRecord) error
}
