// Package units provides shared constants and conversions for fabric speed units.
package units

// Unit constants. The pipeline and the archive store speeds in cm/s; the
// mill floor traditionally works in cm/min, so conversions are offered for
// API consumers.
const (
	CMPS = "cmps"
	CMPM = "cmpm"
	MPS  = "mps"
	MMPS = "mmps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{CMPS, CMPM, MPS, MMPS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "cmps, cmpm, mps, mmps"
}

// ConvertSpeed converts a speed from centimetres per second to the target units.
func ConvertSpeed(speedCMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case CMPS:
		return speedCMPS
	case CMPM:
		return speedCMPS * 60
	case MPS:
		return speedCMPS / 100
	case MMPS:
		return speedCMPS * 10
	default:
		return speedCMPS
	}
}

// ConvertLength converts a displacement from centimetres to the length unit
// matching the given speed unit (cm for cmps/cmpm, m for mps, mm for mmps).
func ConvertLength(lengthCM float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return lengthCM / 100
	case MMPS:
		return lengthCM * 10
	default:
		return lengthCM
	}
}
