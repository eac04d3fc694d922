package sensor

import (
	"context"
	"math/rand"
	"sync"

	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// SimSource is a synthetic velocity source for development and testing.
// It ramps toward a randomly chosen target speed, holds it for a while,
// then picks a new target, with small per-sample noise and occasional
// outlier spikes to exercise the smoothing filter downstream.
type SimSource struct {
	mu        sync.Mutex
	clock     timeutil.Clock
	rng       *rand.Rand
	current   float64
	target    float64
	remaining int

	// NoiseAmplitude is the half-width of the uniform per-sample jitter,
	// in cm/s. OutlierRate is the probability that a sample is replaced
	// with a spike well outside the normal operating range.
	NoiseAmplitude float64
	OutlierRate    float64
}

var _ motion.VelocitySource = (*SimSource)(nil)

// NewSimSource returns a simulated source seeded for reproducibility.
func NewSimSource(clock timeutil.Clock, seed int64) *SimSource {
	return &SimSource{
		clock:          clock,
		rng:            rand.New(rand.NewSource(seed)),
		NoiseAmplitude: 1.5,
		OutlierRate:    0.01,
	}
}

// Read produces the next simulated sample. It never fails and never blocks;
// pacing is the caller's concern.
func (s *SimSource) Read(ctx context.Context) (motion.VelocitySample, error) {
	if err := ctx.Err(); err != nil {
		return motion.VelocitySample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remaining <= 0 {
		// new phase: ramp or hold toward a speed in the working range
		s.target = 10 + s.rng.Float64()*90
		s.remaining = 50 + s.rng.Intn(200)
	}
	s.remaining--

	// step a tenth of the gap per sample so ramps are gradual
	s.current += (s.target - s.current) * 0.1

	value := s.current + (s.rng.Float64()*2-1)*s.NoiseAmplitude
	if s.rng.Float64() < s.OutlierRate {
		value = -150 + s.rng.Float64()*550
	}

	return motion.VelocitySample{
		Timestamp: s.clock.Now(),
		Value:     value,
	}, nil
}
