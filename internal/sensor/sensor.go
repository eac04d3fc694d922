// Package sensor adapts the speed encoder's serial line stream into the
// velocity samples consumed by the motion pipeline.
package sensor

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// Subscriber is the slice of the serial mux the source depends on.
type Subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

// Source implements motion.VelocitySource over a serial mux subscription.
// Lines that fail to parse are skipped (the encoder interleaves command
// echoes with status lines); a read that produces no valid sample within
// the timeout is reported as a sensor failure.
type Source struct {
	mux         Subscriber
	clock       timeutil.Clock
	readTimeout time.Duration
	subID       string
	lines       chan string
}

var _ motion.VelocitySource = (*Source)(nil)

// NewSource subscribes to the mux and returns a velocity source.
// A zero readTimeout defaults to one second.
func NewSource(mux Subscriber, clock timeutil.Clock, readTimeout time.Duration) *Source {
	if readTimeout == 0 {
		readTimeout = time.Second
	}
	id, ch := mux.Subscribe()
	return &Source{
		mux:         mux,
		clock:       clock,
		readTimeout: readTimeout,
		subID:       id,
		lines:       ch,
	}
}

// Read returns the next valid velocity sample from the encoder stream.
func (s *Source) Read(ctx context.Context) (motion.VelocitySample, error) {
	deadline := s.clock.After(s.readTimeout)
	for {
		select {
		case <-ctx.Done():
			return motion.VelocitySample{}, ctx.Err()
		case <-deadline:
			return motion.VelocitySample{}, fmt.Errorf("no sample within %s", s.readTimeout)
		case line, ok := <-s.lines:
			if !ok {
				return motion.VelocitySample{}, fmt.Errorf("serial subscription closed")
			}
			reading, err := ParseLine(line)
			if err != nil {
				monitoring.Logf("sensor: skipping unparseable line %q: %v", line, err)
				continue
			}
			return motion.VelocitySample{
				Timestamp: s.clock.Now(),
				Value:     reading.Speed,
			}, nil
		}
	}
}

// Close releases the mux subscription.
func (s *Source) Close() {
	s.mux.Unsubscribe(s.subID)
}
