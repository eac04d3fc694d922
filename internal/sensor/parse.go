package sensor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Reading is one decoded status line from the speed encoder head.
// Speed is the surface speed in cm/s; Uptime is the encoder's internal
// clock in seconds; Counts is the raw quadrature count since power-on.
type Reading struct {
	Uptime float64 `json:"uptime"`
	Counts int64   `json:"counts"`
	Speed  float64 `json:"speed"`
}

// ParseLine decodes a single encoder status line. The head emits JSON status
// lines when initialised with OJ, but falls back to bare
// "uptime,counts,speed" CSV before initialisation completes, so both formats
// are accepted.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("empty line")
	}

	if strings.HasPrefix(line, "{") {
		var r Reading
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return Reading{}, fmt.Errorf("failed to unmarshal JSON status line: %w", err)
		}
		return r, nil
	}

	segments := strings.Split(line, ",")
	if len(segments) != 3 {
		return Reading{}, fmt.Errorf("expected 3 CSV fields, got %d", len(segments))
	}

	uptime, err := strconv.ParseFloat(strings.TrimSpace(segments[0]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse uptime: %w", err)
	}
	counts, err := strconv.ParseInt(strings.TrimSpace(segments[1]), 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse counts: %w", err)
	}
	speed, err := strconv.ParseFloat(strings.TrimSpace(segments[2]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to parse speed: %w", err)
	}

	return Reading{Uptime: uptime, Counts: counts, Speed: speed}, nil
}
