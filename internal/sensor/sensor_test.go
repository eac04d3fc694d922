package sensor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/surface.report/internal/timeutil"
)

// stubMux hands out a single canned channel and records unsubscribes.
type stubMux struct {
	mu           sync.Mutex
	ch           chan string
	unsubscribed []string
}

func newStubMux() *stubMux {
	return &stubMux{ch: make(chan string, 16)}
}

func (m *stubMux) Subscribe() (string, chan string) {
	return "sub-1", m.ch
}

func (m *stubMux) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, id)
}

func TestReadReturnsParsedSample(t *testing.T) {
	mux := newStubMux()
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewSource(mux, clock, time.Second)

	mux.ch <- "1.25,800,42.5"

	sample, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if sample.Value != 42.5 {
		t.Errorf("Value = %v, want 42.5", sample.Value)
	}
	if !sample.Timestamp.Equal(clock.Now()) {
		t.Errorf("Timestamp = %v, want %v", sample.Timestamp, clock.Now())
	}
}

func TestReadSkipsUnparseableLines(t *testing.T) {
	mux := newStubMux()
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewSource(mux, clock, time.Second)

	mux.ch <- "OK"
	mux.ch <- "garbage"
	mux.ch <- `{"uptime":2.0,"counts":1600,"speed":55.0}`

	sample, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if sample.Value != 55.0 {
		t.Errorf("Value = %v, want 55.0", sample.Value)
	}
}

func TestReadTimesOutWithoutData(t *testing.T) {
	mux := newStubMux()
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewSource(mux, clock, 500*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := src.Read(context.Background())
		done <- err
	}()

	// let Read reach its select before firing the deadline
	time.Sleep(10 * time.Millisecond)
	clock.Advance(time.Second)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Read succeeded with no data, want timeout error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not return after deadline")
	}
}

func TestReadHonoursContextCancellation(t *testing.T) {
	mux := newStubMux()
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewSource(mux, clock, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.Read(ctx)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Read error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not return after cancel")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	mux := newStubMux()
	src := NewSource(mux, timeutil.NewMockClock(time.Unix(1700000000, 0)), time.Second)
	src.Close()

	mux.mu.Lock()
	defer mux.mu.Unlock()
	if len(mux.unsubscribed) != 1 || mux.unsubscribed[0] != "sub-1" {
		t.Errorf("unsubscribed = %v, want [sub-1]", mux.unsubscribed)
	}
}

func TestSimSourceStaysInWorkingRange(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewSimSource(clock, 42)
	src.OutlierRate = 0 // deterministic envelope check

	for i := 0; i < 1000; i++ {
		sample, err := src.Read(context.Background())
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if sample.Value < -10 || sample.Value > 110 {
			t.Fatalf("sample %d = %v, outside working envelope", i, sample.Value)
		}
		clock.Advance(15 * time.Millisecond)
	}
}

func TestSimSourceReproducible(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	a := NewSimSource(clock, 7)
	b := NewSimSource(clock, 7)

	for i := 0; i < 100; i++ {
		sa, _ := a.Read(context.Background())
		sb, _ := b.Read(context.Background())
		if sa.Value != sb.Value {
			t.Fatalf("sample %d diverged: %v vs %v", i, sa.Value, sb.Value)
		}
	}
}
