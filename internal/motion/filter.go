package motion

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MovingAverageFilter smooths raw velocity samples over a bounded sliding
// window. The window holds at most `size` samples; until it fills, the mean
// is computed over however many samples exist, so there is no warm-up phase.
//
// The filter is not safe for concurrent use: it is owned exclusively by the
// measurement loop.
type MovingAverageFilter struct {
	window []float64
	size   int
	last   time.Time
}

// NewMovingAverageFilter creates a filter with the given window size.
// Sizes below 1 are clamped to 1 (a pass-through filter).
func NewMovingAverageFilter(size int) *MovingAverageFilter {
	if size < 1 {
		size = 1
	}
	return &MovingAverageFilter{
		window: make([]float64, 0, size),
		size:   size,
	}
}

// Push accepts a raw sample and returns the smoothed velocity over the
// current window. Samples must arrive with non-decreasing timestamps;
// an out-of-order sample is rejected with ErrOutOfOrder and leaves the
// window untouched.
func (f *MovingAverageFilter) Push(s VelocitySample) (FilteredVelocity, error) {
	if !f.last.IsZero() && s.Timestamp.Before(f.last) {
		return FilteredVelocity{}, fmt.Errorf("%w: %s before %s",
			ErrOutOfOrder, s.Timestamp.Format(time.RFC3339Nano), f.last.Format(time.RFC3339Nano))
	}
	f.last = s.Timestamp

	if len(f.window) == f.size {
		copy(f.window, f.window[1:])
		f.window = f.window[:f.size-1]
	}
	f.window = append(f.window, s.Value)

	return FilteredVelocity{
		Timestamp: s.Timestamp,
		Value:     stat.Mean(f.window, nil),
	}, nil
}

// Len returns the number of samples currently in the window.
func (f *MovingAverageFilter) Len() int {
	return len(f.window)
}
