// Package camera drives the station's dual camera rig. Each capture cycle
// photographs the surface under green and blue light, one picture per camera
// position, and returns the exposure metadata for relay to the collector.
package camera

import (
	"errors"
	"fmt"
)

// Light types the rig cycles through on every capture.
const (
	LightGreen = "green"
	LightBlue  = "blue"
)

// Camera positions. The two cameras view the left and right half of the web.
const (
	PositionLeft  = "left"
	PositionRight = "right"
)

// Lights lists the light types in capture order.
var Lights = []string{LightGreen, LightBlue}

// Positions lists the camera positions in collection order.
var Positions = []string{PositionLeft, PositionRight}

// VerticalViewFieldCM is the vertical extent of surface covered by one frame.
// Surface travel between consecutive captures must stay below this to keep
// full coverage of the web.
const VerticalViewFieldCM = 25.0

// ErrNotReady reports that a triggered picture was collected before the
// camera finished exposing it. Callers retry the capture on a later frame.
var ErrNotReady = errors.New("picture not ready")

// Exposure is the settings applied to one camera for one picture.
type Exposure struct {
	ISO              int
	ExposureTime     float64
	DiaphragmOpening float64
}

func (e Exposure) String() string {
	return fmt.Sprintf("iso=%d t=%gs f=%g", e.ISO, e.ExposureTime, e.DiaphragmOpening)
}
