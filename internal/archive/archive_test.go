package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/surface.report/internal/motion"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func telemetry(id string, ts time.Time) *motion.TelemetryRecord {
	return &motion.TelemetryRecord{
		ID:           id,
		Timestamp:    ts,
		Velocity:     42.5,
		Displacement: 12.75,
	}
}

func TestRecordAndQueryMovements(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := telemetry(string(rune('a'+i)), base.Add(time.Duration(i)*time.Second))
		if err := db.RecordTelemetry(rec); err != nil {
			t.Fatalf("RecordTelemetry failed: %v", err)
		}
	}

	movements, err := db.RecentMovements(10)
	if err != nil {
		t.Fatalf("RecentMovements failed: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("got %d movements, want 3", len(movements))
	}
	// newest first
	if movements[0].RecordID != "c" || movements[2].RecordID != "a" {
		t.Errorf("order = [%s %s %s], want [c b a]", movements[0].RecordID, movements[1].RecordID, movements[2].RecordID)
	}
	if movements[0].Velocity != 42.5 || movements[0].Displacement != 12.75 {
		t.Errorf("movement = %+v", movements[0])
	}
	if !movements[0].RecordedAt.Equal(base.Add(2 * time.Second)) {
		t.Errorf("RecordedAt = %v", movements[0].RecordedAt)
	}
}

func TestRecordTelemetryArchivesCapturesWithoutPayloads(t *testing.T) {
	db := testDB(t)
	rec := telemetry("rec-1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	rec.Images = []motion.ImageMetadata{
		{
			FrameID:    "frame-1",
			Light:      "green",
			CapturedAt: rec.Timestamp,
			Pictures: []motion.Picture{
				{Position: "left", ISO: 400, ExposureTime: 0.005, DiaphragmOpening: 4, Payload: []byte{1, 2, 3}},
			},
		},
		{
			FrameID:    "frame-1",
			Light:      "blue",
			CapturedAt: rec.Timestamp,
			Pictures: []motion.Picture{
				{Position: "left", ISO: 800, ExposureTime: 0.01, DiaphragmOpening: 2.8},
			},
		},
	}

	if err := db.RecordTelemetry(rec); err != nil {
		t.Fatalf("RecordTelemetry failed: %v", err)
	}

	captures, err := db.RecentCaptures(10)
	if err != nil {
		t.Fatalf("RecentCaptures failed: %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("got %d captures, want 2", len(captures))
	}
	for _, c := range captures {
		if c.FrameID != "frame-1" || c.RecordID != "rec-1" {
			t.Errorf("capture = %+v", c)
		}
		if len(c.Pictures) != 1 {
			t.Fatalf("light %s: %d pictures", c.Light, len(c.Pictures))
		}
		if len(c.Pictures[0].Payload) != 0 {
			t.Errorf("light %s: payload archived, want metadata only", c.Light)
		}
		if c.Pictures[0].ISO == 0 {
			t.Errorf("light %s: exposure metadata lost", c.Light)
		}
	}
}

func TestDuplicateFrameLightRejected(t *testing.T) {
	db := testDB(t)
	rec := telemetry("rec-1", time.Now().UTC())
	rec.Images = []motion.ImageMetadata{
		{FrameID: "frame-1", Light: "green", CapturedAt: rec.Timestamp, Pictures: []motion.Picture{{Position: "left"}}},
	}
	if err := db.RecordTelemetry(rec); err != nil {
		t.Fatalf("first RecordTelemetry failed: %v", err)
	}
	rec2 := telemetry("rec-2", time.Now().UTC())
	rec2.Images = rec.Images
	if err := db.RecordTelemetry(rec2); err == nil {
		t.Error("duplicate frame/light accepted")
	}
}

// captureTransport records what was forwarded.
type captureTransport struct {
	sent []*motion.TelemetryRecord
}

func (c *captureTransport) Send(ctx context.Context, rec *motion.TelemetryRecord) error {
	c.sent = append(c.sent, rec)
	return nil
}

func TestTransportArchivesAndForwards(t *testing.T) {
	db := testDB(t)
	next := &captureTransport{}
	tr := NewTransport(db, next)

	rec := telemetry("rec-1", time.Now().UTC())
	if err := tr.Send(context.Background(), rec); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(next.sent) != 1 || next.sent[0].ID != "rec-1" {
		t.Errorf("forwarded = %+v", next.sent)
	}
	movements, err := db.RecentMovements(10)
	if err != nil {
		t.Fatalf("RecentMovements failed: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("archived %d movements, want 1", len(movements))
	}
}

func TestMigrateUpFromFreshDatabase(t *testing.T) {
	// a fresh file, not via NewDB, so migrations own the whole schema
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp("../../migrations"); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion("../../migrations")
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("database dirty after MigrateUp")
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	// schema still usable after migrations
	if err := db.RecordTelemetry(telemetry("rec-1", time.Now().UTC())); err != nil {
		t.Errorf("RecordTelemetry after migrate failed: %v", err)
	}
}
