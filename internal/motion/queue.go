package motion

import (
	"context"
	"sync"
)

// TransmissionQueue decouples the measurement loop from collector latency.
// Enqueue never blocks: when the queue is full the oldest record is evicted,
// prioritising recency over completeness. Surviving records are delivered in
// FIFO order.
type TransmissionQueue struct {
	mu    sync.Mutex
	ch    chan *TelemetryRecord
	stats *Stats
}

// NewTransmissionQueue creates a queue with the given capacity.
// Capacities below 1 are clamped to 1.
func NewTransmissionQueue(depth int, stats *Stats) *TransmissionQueue {
	if depth < 1 {
		depth = 1
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &TransmissionQueue{
		ch:    make(chan *TelemetryRecord, depth),
		stats: stats,
	}
}

// Enqueue adds a record without blocking. When the queue is full the oldest
// queued record is dropped to make room; stale telemetry is lower value than
// timely telemetry.
func (q *TransmissionQueue) Enqueue(rec *TelemetryRecord) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.RecordsEnqueued.Add(1)
	for {
		select {
		case q.ch <- rec:
			return
		default:
		}
		select {
		case <-q.ch:
			q.stats.QueueEvictions.Add(1)
		default:
			// Consumer raced us and made room; retry the send.
		}
	}
}

// Dequeue blocks until a record is available or the context is cancelled.
func (q *TransmissionQueue) Dequeue(ctx context.Context) (*TelemetryRecord, bool) {
	select {
	case rec := <-q.ch:
		return rec, true
	case <-ctx.Done():
		return nil, false
	}
}

// TryDequeue returns the next record without blocking.
func (q *TransmissionQueue) TryDequeue() (*TelemetryRecord, bool) {
	select {
	case rec := <-q.ch:
		return rec, true
	default:
		return nil, false
	}
}

// Len returns the number of queued records.
func (q *TransmissionQueue) Len() int {
	return len(q.ch)
}
