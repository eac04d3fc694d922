package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
)

// velocityChart renders an HTML line chart of recent archived movements.
// Debugging-only endpoint (no auth), intended for a browser on the station
// network. Query params:
//   - limit (optional; default 500) number of movements to plot
func (s *Server) velocityChart(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 500)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	movements, err := s.db.RecentMovements(limit)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve movements: %v", err))
		return
	}
	if len(movements) == 0 {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusNotFound, "No movements archived yet")
		return
	}

	// oldest first for a left-to-right time axis
	timestamps := make([]string, len(movements))
	velocities := make([]opts.LineData, len(movements))
	displacements := make([]opts.LineData, len(movements))
	speeds := make([]float64, len(movements))
	for i := range movements {
		m := movements[len(movements)-1-i]
		timestamps[i] = m.RecordedAt.Format("15:04:05")
		velocities[i] = opts.LineData{Value: m.Velocity}
		displacements[i] = opts.LineData{Value: m.Displacement}
		speeds[i] = m.Velocity
	}
	mean, stddev := stat.MeanStdDev(speeds, nil)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Surface velocity", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Surface velocity",
			Subtitle: fmt.Sprintf("n=%d mean=%.1f cm/s stddev=%.1f cm/s", len(speeds), mean, stddev),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cm/s"}),
	)
	line.SetXAxis(timestamps)
	line.AddSeries("velocity", velocities)
	line.AddSeries("displacement", displacements, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		w.Header().Set("Content-Type", "application/json")
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
