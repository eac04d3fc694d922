package motion

import (
	"context"
	"time"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// Sender is the transmission consumer: it dequeues telemetry records and
// delivers them to the Transport, retrying each record with exponential
// backoff up to a bounded attempt count. Records exhausting their retries
// are dropped and counted, never allowed to stall the pipeline.
type Sender struct {
	queue          *TransmissionQueue
	transport      Transport
	clock          timeutil.Clock
	maxRetries     int
	attemptTimeout time.Duration
	backoff        time.Duration
	drainGrace     time.Duration
	stats          *Stats
}

// SenderConfig configures the transmission consumer. Zero values fall back
// to reasonable defaults.
type SenderConfig struct {
	MaxRetries     int           // additional attempts after the first (default 3)
	AttemptTimeout time.Duration // per-attempt Transport deadline (default 5s)
	Backoff        time.Duration // base backoff, doubled per retry (default 500ms)
	DrainGrace     time.Duration // post-shutdown drain budget (default 5s)
}

// NewSender creates a transmission consumer over the given queue.
func NewSender(queue *TransmissionQueue, transport Transport, clock timeutil.Clock, cfg SenderConfig, stats *Stats) *Sender {
	if cfg.AttemptTimeout == 0 {
		cfg.AttemptTimeout = 5 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.DrainGrace == 0 {
		cfg.DrainGrace = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Sender{
		queue:          queue,
		transport:      transport,
		clock:          clock,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: cfg.AttemptTimeout,
		backoff:        cfg.Backoff,
		drainGrace:     cfg.DrainGrace,
		stats:          stats,
	}
}

// Run consumes the queue until ctx is cancelled, then drains whatever is
// still queued within the drain grace period.
func (s *Sender) Run(ctx context.Context) {
	for {
		rec, ok := s.queue.Dequeue(ctx)
		if !ok {
			break
		}
		s.deliver(ctx, rec)
	}
	s.drain()
}

// deliver attempts to send one record, retrying with exponential backoff.
func (s *Sender) deliver(ctx context.Context, rec *TelemetryRecord) {
	backoff := s.backoff
	for attempt := 0; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
		err := s.transport.Send(attemptCtx, rec)
		cancel()
		if err == nil {
			s.stats.RecordsSent.Add(1)
			return
		}
		if attempt >= s.maxRetries {
			s.stats.RecordsLost.Add(1)
			monitoring.Logf("telemetry: dropping record %s after %d attempts: %v", rec.ID, attempt+1, err)
			return
		}
		s.stats.SendRetries.Add(1)
		s.clock.Sleep(backoff)
		backoff *= 2
	}
}

// drain flushes the remaining queue under a bounded grace period. Records
// that cannot be delivered before the deadline are counted as lost.
func (s *Sender) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainGrace)
	defer cancel()

	for {
		rec, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		if drainCtx.Err() != nil {
			s.stats.RecordsLost.Add(1)
			continue
		}
		s.deliver(drainCtx, rec)
	}
}
