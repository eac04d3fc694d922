package motion

import (
	"time"

	"github.com/google/uuid"
)

// CaptureSchedulerConfig bounds the camera duty cycle. MaxDisplacementPerFrame
// is the cameras' vertical view field: the surface must never travel further
// than that between consecutive frames. MinInterval and MaxInterval bound the
// inter-capture time regardless of displacement.
type CaptureSchedulerConfig struct {
	MaxDisplacementPerFrame float64
	MinInterval             time.Duration
	MaxInterval             time.Duration
}

// CaptureScheduler decides, after each integration step, whether a capture
// must fire. It tracks at most one capture in flight: while the camera
// worker is busy, further triggers are suppressed so that displacement keeps
// accumulating until the measurement loop observes the result.
//
// Not safe for concurrent use; owned by the measurement loop.
type CaptureScheduler struct {
	cfg         CaptureSchedulerConfig
	lastCapture time.Time
	pending     bool
}

// NewCaptureScheduler creates a scheduler. The interval clock starts on the
// first Tick (or an explicit Start).
func NewCaptureScheduler(cfg CaptureSchedulerConfig) *CaptureScheduler {
	return &CaptureScheduler{cfg: cfg}
}

// Start rebases the inter-capture clock, as if a capture had just fired.
func (s *CaptureScheduler) Start(now time.Time) {
	s.lastCapture = now
}

// Tick evaluates the trigger condition against the current accumulated
// displacement. It returns a CaptureEvent when a capture must fire, or nil.
// Both trigger conditions being true at once still yields exactly one event.
func (s *CaptureScheduler) Tick(now time.Time, displacement float64) *CaptureEvent {
	if s.lastCapture.IsZero() {
		s.lastCapture = now
		return nil
	}
	if s.pending {
		return nil
	}

	elapsed := now.Sub(s.lastCapture)
	// The camera-rate ceiling takes precedence over the displacement ceiling.
	if elapsed < s.cfg.MinInterval {
		return nil
	}
	if displacement < s.cfg.MaxDisplacementPerFrame && elapsed < s.cfg.MaxInterval {
		return nil
	}

	s.pending = true
	return &CaptureEvent{
		FrameID:      uuid.NewString(),
		Timestamp:    now,
		Displacement: displacement,
	}
}

// MarkCaptured records a successful capture: the in-flight slot is freed and
// the inter-capture clock rebased. The caller resets the integrator.
func (s *CaptureScheduler) MarkCaptured(now time.Time) {
	s.pending = false
	s.lastCapture = now
}

// MarkFailed frees the in-flight slot without rebasing anything, so the
// accumulated displacement is re-evaluated on the next tick.
func (s *CaptureScheduler) MarkFailed() {
	s.pending = false
}

// InFlight reports whether a capture has been triggered but not yet resolved.
func (s *CaptureScheduler) InFlight() bool {
	return s.pending
}
