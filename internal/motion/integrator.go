package motion

import "time"

// DisplacementIntegrator accumulates surface displacement (cm) as the time
// integral of smoothed velocity, using the rectangular rule
// disp += v * dt. Accumulation is plain float64 addition; long-run drift is
// bounded and accepted, no compensated summation is attempted.
//
// Owned exclusively by the measurement loop; Reset is invoked from that same
// goroutine when a capture completes.
type DisplacementIntegrator struct {
	displacement float64
	last         time.Time
	baselined    bool
}

// NewDisplacementIntegrator creates an integrator with no baseline. The
// first Integrate call (or an explicit Reset) establishes the time baseline
// and contributes zero displacement.
func NewDisplacementIntegrator() *DisplacementIntegrator {
	return &DisplacementIntegrator{}
}

// Integrate advances the accumulation by v.Value over the time elapsed
// since the previous call and returns the new total.
func (i *DisplacementIntegrator) Integrate(v FilteredVelocity) float64 {
	if !i.baselined {
		i.baselined = true
		i.last = v.Timestamp
		return i.displacement
	}
	dt := v.Timestamp.Sub(i.last).Seconds()
	if dt > 0 {
		i.displacement += v.Value * dt
	}
	i.last = v.Timestamp
	return i.displacement
}

// Reset zeroes the accumulated displacement and rebases elapsed-time
// tracking at now. Called exactly once per successful capture.
func (i *DisplacementIntegrator) Reset(now time.Time) {
	i.displacement = 0
	i.last = now
	i.baselined = true
}

// Displacement returns the current accumulated displacement.
func (i *DisplacementIntegrator) Displacement() float64 {
	return i.displacement
}
