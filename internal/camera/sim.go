package camera

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// SimRig is a software stand-in for the physical rig. It follows the same
// trigger-then-collect protocol as the hardware driver: Capture triggers
// every position under every light, waits out the exposure, then collects
// the results. Failures can be injected for testing the pipeline's retry
// behaviour.
type SimRig struct {
	mu    sync.Mutex
	clock timeutil.Clock
	rng   *rand.Rand

	// ExposureDelay is how long a triggered picture takes to become
	// collectable.
	ExposureDelay time.Duration

	// NotReadyRate is the probability that a collected picture reports
	// not-ready despite the wait, simulating a slow exposure.
	NotReadyRate float64

	// WithPayloads attaches a small synthetic image payload to each
	// picture, for exercising the collector's picture upload path.
	WithPayloads bool

	captures int
}

var _ motion.ImageCapture = (*SimRig)(nil)

// NewSimRig returns a simulated rig with a deterministic seed.
func NewSimRig(clock timeutil.Clock, seed int64) *SimRig {
	return &SimRig{
		clock:         clock,
		rng:           rand.New(rand.NewSource(seed)),
		ExposureDelay: 20 * time.Millisecond,
	}
}

// Capture performs one full capture cycle for the trigger event and returns
// one ImageMetadata per light type, each holding one picture per position.
func (r *SimRig) Capture(ctx context.Context, ev motion.CaptureEvent) ([]motion.ImageMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures++

	var out []motion.ImageMetadata
	for _, light := range Lights {
		// trigger phase: all positions start exposing under this light
		exposures := make([]Exposure, len(Positions))
		for i := range Positions {
			exposures[i] = r.pickExposure(light)
		}

		if r.ExposureDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-r.clock.After(r.ExposureDelay):
			}
		}

		// collect phase
		meta := motion.ImageMetadata{
			FrameID:    ev.FrameID,
			Light:      light,
			CapturedAt: r.clock.Now(),
		}
		for i, pos := range Positions {
			if r.NotReadyRate > 0 && r.rng.Float64() < r.NotReadyRate {
				return nil, fmt.Errorf("collect %s/%s for frame %s: %w", pos, light, ev.FrameID, ErrNotReady)
			}
			pic := motion.Picture{
				Position:         pos,
				ISO:              exposures[i].ISO,
				ExposureTime:     exposures[i].ExposureTime,
				DiaphragmOpening: exposures[i].DiaphragmOpening,
			}
			if r.WithPayloads {
				pic.Payload = r.syntheticPayload(light, pos)
			}
			meta.Pictures = append(meta.Pictures, pic)
		}
		out = append(out, meta)
	}
	return out, nil
}

// Captures reports how many capture cycles have been requested.
func (r *SimRig) Captures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captures
}

var isoLadder = []int{100, 200, 400, 800}

// pickExposure models the rig's auto-exposure: blue light is dimmer than
// green, so it gets a slower shutter and a wider diaphragm.
func (r *SimRig) pickExposure(light string) Exposure {
	e := Exposure{
		ISO:              isoLadder[r.rng.Intn(len(isoLadder))],
		ExposureTime:     0.004 + r.rng.Float64()*0.004,
		DiaphragmOpening: 4.0,
	}
	if light == LightBlue {
		e.ExposureTime *= 2
		e.DiaphragmOpening = 2.8
	}
	return e
}

// syntheticPayload is a tiny deterministic stand-in for raw image bytes.
func (r *SimRig) syntheticPayload(light, pos string) []byte {
	payload := make([]byte, 64)
	seed := byte(len(light) + len(pos))
	for i := range payload {
		payload[i] = seed + byte(i)
	}
	return payload
}
