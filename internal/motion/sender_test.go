package motion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/surface.report/internal/timeutil"
)

// flakyTransport fails the first failures sends, then succeeds.
type flakyTransport struct {
	mu       sync.Mutex
	failures int
	attempts int
	sent     []string
}

func (f *flakyTransport) Send(ctx context.Context, rec *TelemetryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return errors.New("collector unreachable")
	}
	f.sent = append(f.sent, rec.ID)
	return nil
}

func (f *flakyTransport) sentIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestSender_RetriesThenSucceeds(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	stats := &Stats{}
	q := NewTransmissionQueue(4, stats)
	tr := &flakyTransport{failures: 2}
	s := NewSender(q, tr, clock, SenderConfig{MaxRetries: 3, Backoff: 100 * time.Millisecond}, stats)

	s.deliver(context.Background(), rec("A"))

	if got := tr.sentIDs(); len(got) != 1 || got[0] != "A" {
		t.Fatalf("sent = %v, want [A]", got)
	}
	if n := stats.SendRetries.Load(); n != 2 {
		t.Errorf("retries = %d, want 2", n)
	}
	if n := stats.RecordsLost.Load(); n != 0 {
		t.Errorf("lost = %d, want 0", n)
	}
	// Exponential backoff: 100ms then 200ms.
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 100*time.Millisecond || sleeps[1] != 200*time.Millisecond {
		t.Errorf("backoff sleeps = %v, want [100ms 200ms]", sleeps)
	}
}

func TestSender_DropsAfterRetryBudget(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	stats := &Stats{}
	q := NewTransmissionQueue(4, stats)
	tr := &flakyTransport{failures: 100}
	s := NewSender(q, tr, clock, SenderConfig{MaxRetries: 2, Backoff: time.Millisecond}, stats)

	s.deliver(context.Background(), rec("A"))

	if n := stats.RecordsLost.Load(); n != 1 {
		t.Errorf("lost = %d, want 1", n)
	}
	if n := stats.RecordsSent.Load(); n != 0 {
		t.Errorf("sent = %d, want 0", n)
	}
	// One initial attempt plus two retries.
	if tr.attempts != 3 {
		t.Errorf("attempts = %d, want 3", tr.attempts)
	}
}

func TestSender_DrainsQueueOnShutdown(t *testing.T) {
	stats := &Stats{}
	q := NewTransmissionQueue(8, stats)
	tr := &flakyTransport{}
	s := NewSender(q, tr, timeutil.RealClock{}, SenderConfig{DrainGrace: time.Second}, stats)

	q.Enqueue(rec("A"))
	q.Enqueue(rec("B"))
	q.Enqueue(rec("C"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	got := tr.sentIDs()
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("drained = %v, want [A B C]", got)
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty after drain: %d", q.Len())
	}
}

func TestSender_DeliversInOrder(t *testing.T) {
	stats := &Stats{}
	q := NewTransmissionQueue(8, stats)
	tr := &flakyTransport{}
	s := NewSender(q, tr, timeutil.RealClock{}, SenderConfig{}, stats)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	for _, id := range []string{"1", "2", "3", "4"} {
		q.Enqueue(rec(id))
	}

	deadline := time.After(2 * time.Second)
	for {
		if len(tr.sentIDs()) == 4 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out, sent = %v", tr.sentIDs())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	got := tr.sentIDs()
	for i, want := range []string{"1", "2", "3", "4"} {
		if got[i] != want {
			t.Fatalf("delivery order = %v", got)
		}
	}
}
