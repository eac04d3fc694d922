// Package api serves the station's local HTTP API: recent measurements and
// captures from the archive, live pipeline statistics, and a velocity chart.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/surface.report/internal/archive"
	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/units"
	"github.com/banshee-data/surface.report/internal/version"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db    *archive.DB
	stats func() motion.StatsSnapshot
	units string
}

// NewServer returns a server over the given archive. stats supplies a live
// snapshot of the pipeline counters; displayUnits is the unit speeds are
// reported in (the archive stores cm/s).
func NewServer(db *archive.DB, stats func() motion.StatsSnapshot, displayUnits string) *Server {
	if displayUnits == "" {
		displayUnits = units.CMPS
	}
	return &Server{db: db, stats: stats, units: displayUnits}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/movements", s.listMovements)
	mux.HandleFunc("/api/captures", s.listCaptures)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/charts/velocity", s.velocityChart)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// limitParam parses an optional ?limit= query parameter.
func limitParam(r *http.Request, fallback int) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid 'limit' parameter %q", l)
	}
	return parsed, nil
}

func (s *Server) listMovements(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, err := limitParam(r, 500)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	movements, err := s.db.RecentMovements(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve movements: %v", err))
		return
	}

	// speeds are archived in cm/s; convert to the display unit
	for i := range movements {
		movements[i].Velocity = units.ConvertSpeed(movements[i].Velocity, s.units)
	}

	if err := json.NewEncoder(w).Encode(movements); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write movements")
	}
}

func (s *Server) listCaptures(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, err := limitParam(r, 100)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	captures, err := s.db.RecentCaptures(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve captures: %v", err))
		return
	}

	if err := json.NewEncoder(w).Encode(captures); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write captures")
	}
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.stats == nil {
		s.writeJSONError(w, http.StatusNotFound, "No pipeline stats available")
		return
	}

	if err := json.NewEncoder(w).Encode(s.stats()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write stats")
	}
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write version")
	}
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	config := map[string]interface{}{
		"units": s.units,
	}

	if err := json.NewEncoder(w).Encode(config); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to write config")
	}
}
