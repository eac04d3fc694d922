package units

import "testing"

func TestIsValid(t *testing.T) {
	for _, unit := range ValidUnits {
		if !IsValid(unit) {
			t.Errorf("IsValid(%q) = false", unit)
		}
	}
	for _, unit := range []string{"", "mph", "CMPS", "furlongs"} {
		if IsValid(unit) {
			t.Errorf("IsValid(%q) = true", unit)
		}
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		units string
		want  float64
	}{
		{CMPS, 50},
		{CMPM, 3000},
		{MPS, 0.5},
		{MMPS, 500},
		{"unknown", 50},
	}
	for _, tt := range tests {
		if got := ConvertSpeed(50, tt.units); got != tt.want {
			t.Errorf("ConvertSpeed(50, %q) = %v, want %v", tt.units, got, tt.want)
		}
	}
}

func TestConvertLength(t *testing.T) {
	tests := []struct {
		units string
		want  float64
	}{
		{CMPS, 25},
		{CMPM, 25},
		{MPS, 0.25},
		{MMPS, 250},
	}
	for _, tt := range tests {
		if got := ConvertLength(25, tt.units); got != tt.want {
			t.Errorf("ConvertLength(25, %q) = %v, want %v", tt.units, got, tt.want)
		}
	}
}
