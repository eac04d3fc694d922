// Package archive keeps a local sqlite copy of everything the station
// reports, so measurements survive collector outages and can be inspected
// on the station itself.
package archive

import (
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/motion"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the archive database at path. The base schema is
// applied on open; MigrateUp handles later schema evolution.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS movements (
			record_id TEXT PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			velocity DOUBLE NOT NULL,
			displacement DOUBLE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS captures (
			frame_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			light TEXT NOT NULL,
			captured_at TEXT NOT NULL,
			pictures TEXT NOT NULL,
			PRIMARY KEY (frame_id, light),
			FOREIGN KEY(record_id) REFERENCES movements(record_id)
		);
		CREATE INDEX IF NOT EXISTS idx_movements_recorded_at ON movements(recorded_at);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// RecordTelemetry archives one telemetry record: the movement row, plus one
// capture row per light when the record carries images. Picture payloads are
// not archived, only their exposure metadata.
func (db *DB) RecordTelemetry(rec *motion.TelemetryRecord) error {
	_, err := db.Exec(
		"INSERT INTO movements (record_id, recorded_at, velocity, displacement) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Velocity, rec.Displacement,
	)
	if err != nil {
		return fmt.Errorf("failed to archive movement %s: %w", rec.ID, err)
	}

	for _, img := range rec.Images {
		metadata := make([]motion.Picture, len(img.Pictures))
		for i, pic := range img.Pictures {
			pic.Payload = nil
			metadata[i] = pic
		}
		pictures, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal pictures for frame %s: %w", img.FrameID, err)
		}
		_, err = db.Exec(
			"INSERT INTO captures (frame_id, record_id, light, captured_at, pictures) VALUES (?, ?, ?, ?, ?)",
			img.FrameID, rec.ID, img.Light, img.CapturedAt.UTC().Format(time.RFC3339Nano), string(pictures),
		)
		if err != nil {
			return fmt.Errorf("failed to archive capture %s/%s: %w", img.FrameID, img.Light, err)
		}
	}

	return nil
}

// Movement is one archived movement measurement.
type Movement struct {
	RecordID     string    `json:"record_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Velocity     float64   `json:"velocity"`
	Displacement float64   `json:"displacement"`
}

// RecentMovements returns the newest archived movements, newest first.
func (db *DB) RecentMovements(limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		"SELECT record_id, recorded_at, velocity, displacement FROM movements ORDER BY recorded_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		var recordedAt string
		if err := rows.Scan(&m.RecordID, &recordedAt, &m.Velocity, &m.Displacement); err != nil {
			return nil, err
		}
		m.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("bad recorded_at %q: %w", recordedAt, err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// Capture is one archived capture under one light.
type Capture struct {
	FrameID    string           `json:"frame_id"`
	RecordID   string           `json:"record_id"`
	Light      string           `json:"light"`
	CapturedAt time.Time        `json:"captured_at"`
	Pictures   []motion.Picture `json:"pictures"`
}

// RecentCaptures returns the newest archived captures, newest first.
func (db *DB) RecentCaptures(limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		"SELECT frame_id, record_id, light, captured_at, pictures FROM captures ORDER BY captured_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []Capture
	for rows.Next() {
		var c Capture
		var capturedAt, pictures string
		if err := rows.Scan(&c.FrameID, &c.RecordID, &c.Light, &capturedAt, &pictures); err != nil {
			return nil, err
		}
		c.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt)
		if err != nil {
			return nil, fmt.Errorf("bad captured_at %q: %w", capturedAt, err)
		}
		if err := json.Unmarshal([]byte(pictures), &c.Pictures); err != nil {
			return nil, fmt.Errorf("bad pictures for frame %s: %w", c.FrameID, err)
		}
		captures = append(captures, c)
	}
	return captures, rows.Err()
}

// Transport wraps another transport, archiving every record before
// forwarding it. Archive failures are logged but never block delivery.
type Transport struct {
	db   *DB
	next motion.Transport
}

var _ motion.Transport = (*Transport)(nil)

func NewTransport(db *DB, next motion.Transport) *Transport {
	return &Transport{db: db, next: next}
}

func (t *Transport) Send(ctx context.Context, rec *motion.TelemetryRecord) error {
	if err := t.db.RecordTelemetry(rec); err != nil {
		monitoring.Logf("archive: failed to record %s: %v", rec.ID, err)
	}
	return t.next.Send(ctx, rec)
}

// AttachAdminRoutes mounts tailsql and a backup endpoint under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://surface.db", db.DB, &tailsql.DBOptions{
		Label: "Surface archive",
	})

	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the archive now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backupPath := fmt.Sprintf("backup-%d.db", time.Now().Unix())
		if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				monitoring.Logf("failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
