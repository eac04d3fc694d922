package motion

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleAt(base time.Time, offset time.Duration, v float64) VelocitySample {
	return VelocitySample{Timestamp: base.Add(offset), Value: v}
}

func TestMovingAverageFilter_WindowMean(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window int
		inputs []float64
		want   []float64
	}{
		{
			name:   "window three ramp",
			window: 3,
			inputs: []float64{2, 4, 6, 8},
			want:   []float64{2, 3, 4, 6},
		},
		{
			name:   "window one is passthrough",
			window: 1,
			inputs: []float64{5, 1, 9},
			want:   []float64{5, 1, 9},
		},
		{
			name:   "partial window before fill",
			window: 4,
			inputs: []float64{10, 20},
			want:   []float64{10, 15},
		},
		{
			name:   "eviction keeps last N",
			window: 2,
			inputs: []float64{1, 3, 5, 7, 9},
			want:   []float64{1, 2, 4, 6, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewMovingAverageFilter(tt.window)
			var got []float64
			for i, v := range tt.inputs {
				fv, err := f.Push(sampleAt(base, time.Duration(i)*time.Second, v))
				if err != nil {
					t.Fatalf("Push(%v) returned error: %v", v, err)
				}
				got = append(got, fv.Value)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("smoothed sequence mismatch (-want +got):\n%s", diff)
			}
			if f.Len() > tt.window {
				t.Errorf("window length %d exceeds size %d", f.Len(), tt.window)
			}
		})
	}
}

func TestMovingAverageFilter_RejectsOutOfOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewMovingAverageFilter(3)

	if _, err := f.Push(sampleAt(base, time.Second, 4)); err != nil {
		t.Fatalf("first push failed: %v", err)
	}
	if _, err := f.Push(sampleAt(base, 0, 6)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	// The rejected sample must not have touched the window.
	fv, err := f.Push(sampleAt(base, 2*time.Second, 8))
	if err != nil {
		t.Fatalf("push after rejection failed: %v", err)
	}
	if math.Abs(fv.Value-6) > 1e-9 {
		t.Errorf("mean after rejection = %v, want 6 (window should hold [4 8])", fv.Value)
	}
}

func TestMovingAverageFilter_EqualTimestampsAccepted(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewMovingAverageFilter(2)

	if _, err := f.Push(sampleAt(base, 0, 1)); err != nil {
		t.Fatalf("first push failed: %v", err)
	}
	if _, err := f.Push(sampleAt(base, 0, 3)); err != nil {
		t.Fatalf("equal timestamp should be accepted: %v", err)
	}
}

func TestMovingAverageFilter_ClampsWindowSize(t *testing.T) {
	f := NewMovingAverageFilter(0)
	fv, err := f.Push(VelocitySample{Timestamp: time.Now(), Value: 7})
	if err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if fv.Value != 7 {
		t.Errorf("clamped filter output = %v, want 7", fv.Value)
	}
}
