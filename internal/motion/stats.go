package motion

import "sync/atomic"

// Stats tracks pipeline counters. All fields are updated atomically so the
// HTTP API can snapshot them while the pipeline runs.
type Stats struct {
	SamplesRead       atomic.Int64
	OutOfOrderSamples atomic.Int64
	SensorRetries     atomic.Int64

	CapturesRequested atomic.Int64
	CapturesSucceeded atomic.Int64
	CaptureFailures   atomic.Int64

	RecordsEnqueued atomic.Int64
	QueueEvictions  atomic.Int64
	RecordsSent     atomic.Int64
	SendRetries     atomic.Int64
	RecordsLost     atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the pipeline counters.
type StatsSnapshot struct {
	SamplesRead       int64 `json:"samples_read"`
	OutOfOrderSamples int64 `json:"out_of_order_samples"`
	SensorRetries     int64 `json:"sensor_retries"`
	CapturesRequested int64 `json:"captures_requested"`
	CapturesSucceeded int64 `json:"captures_succeeded"`
	CaptureFailures   int64 `json:"capture_failures"`
	RecordsEnqueued   int64 `json:"records_enqueued"`
	QueueEvictions    int64 `json:"queue_evictions"`
	RecordsSent       int64 `json:"records_sent"`
	SendRetries       int64 `json:"send_retries"`
	RecordsLost       int64 `json:"records_lost"`
}

// Snapshot returns a consistent-enough copy for reporting. Individual
// counters are read atomically; the set as a whole is not a transaction.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		SamplesRead:       s.SamplesRead.Load(),
		OutOfOrderSamples: s.OutOfOrderSamples.Load(),
		SensorRetries:     s.SensorRetries.Load(),
		CapturesRequested: s.CapturesRequested.Load(),
		CapturesSucceeded: s.CapturesSucceeded.Load(),
		CaptureFailures:   s.CaptureFailures.Load(),
		RecordsEnqueued:   s.RecordsEnqueued.Load(),
		QueueEvictions:    s.QueueEvictions.Load(),
		RecordsSent:       s.RecordsSent.Load(),
		SendRetries:       s.SendRetries.Load(),
		RecordsLost:       s.RecordsLost.Load(),
	}
}
