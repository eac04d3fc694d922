package motion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// CoordinatorConfig collects the tunables of the pipeline. Zero values fall
// back to defaults suitable for the mill-floor deployment.
type CoordinatorConfig struct {
	SampleInterval time.Duration // sensor sampling cadence (default 15ms, ~66 Hz)
	ReportInterval time.Duration // movement telemetry cadence (default 1s)
	WindowSize     int           // moving-average window (default 3)

	Scheduler CaptureSchedulerConfig

	QueueDepth int // transmission queue capacity (default 256)
	Sender     SenderConfig

	SensorMaxRetries int           // read retries before fatal (default 5)
	SensorBackoff    time.Duration // base backoff between read retries (default 1s)
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.SampleInterval == 0 {
		c.SampleInterval = 15 * time.Millisecond
	}
	if c.ReportInterval == 0 {
		c.ReportInterval = time.Second
	}
	if c.WindowSize == 0 {
		c.WindowSize = 3
	}
	if c.Scheduler.MaxDisplacementPerFrame == 0 {
		c.Scheduler.MaxDisplacementPerFrame = 25 // cameras' vertical view field, cm
	}
	if c.Scheduler.MaxInterval == 0 {
		c.Scheduler.MaxInterval = 10 * time.Second
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = 256
	}
	if c.SensorMaxRetries == 0 {
		c.SensorMaxRetries = 5
	}
	if c.SensorBackoff == 0 {
		c.SensorBackoff = time.Second
	}
	return c
}

// captureResult carries the outcome of an asynchronous capture back to the
// measurement loop, which is the only goroutine allowed to mutate
// displacement state.
type captureResult struct {
	event  CaptureEvent
	images []ImageMetadata
	err    error
}

// Coordinator owns the three concurrent pipeline activities: the
// sample/filter/integrate/schedule loop, the capture worker, and the
// transmission consumer. Run starts all three and does not return until
// every goroutine has exited.
type Coordinator struct {
	cfg       CoordinatorConfig
	clock     timeutil.Clock
	source    VelocitySource
	camera    ImageCapture
	transport Transport

	filter     *MovingAverageFilter
	integrator *DisplacementIntegrator
	scheduler  *CaptureScheduler
	queue      *TransmissionQueue
	sender     *Sender
	stats      *Stats

	// lastSmoothed is touched only by the measurement loop.
	lastSmoothed FilteredVelocity
}

// NewCoordinator wires the pipeline components around the given
// collaborators.
func NewCoordinator(cfg CoordinatorConfig, clock timeutil.Clock, source VelocitySource, camera ImageCapture, transport Transport) *Coordinator {
	cfg = cfg.withDefaults()
	stats := &Stats{}
	queue := NewTransmissionQueue(cfg.QueueDepth, stats)
	return &Coordinator{
		cfg:        cfg,
		clock:      clock,
		source:     source,
		camera:     camera,
		transport:  transport,
		filter:     NewMovingAverageFilter(cfg.WindowSize),
		integrator: NewDisplacementIntegrator(),
		scheduler:  NewCaptureScheduler(cfg.Scheduler),
		queue:      queue,
		sender:     NewSender(queue, transport, clock, cfg.Sender, stats),
		stats:      stats,
	}
}

// Stats returns a snapshot of the pipeline counters.
func (c *Coordinator) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// QueueLen returns the current transmission queue depth.
func (c *Coordinator) QueueLen() int {
	return c.queue.Len()
}

// Run executes the pipeline until ctx is cancelled or the sensor becomes
// permanently unavailable. On return all three activities have stopped and
// the transmission queue has been drained up to its grace period.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	captureCh := make(chan CaptureEvent, 1)
	resultCh := make(chan captureResult, 1)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.captureWorker(ctx, captureCh, resultCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.sender.Run(ctx)
	}()

	err := c.measureLoop(ctx, captureCh, resultCh)

	cancel()
	wg.Wait()
	return err
}

// captureWorker performs camera captures off the measurement loop. In-flight
// captures are allowed to complete on shutdown; the worker exits at the top
// of the next iteration.
func (c *Coordinator) captureWorker(ctx context.Context, events <-chan CaptureEvent, results chan<- captureResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			images, err := c.camera.Capture(ctx, ev)
			select {
			case results <- captureResult{event: ev, images: images, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// measureLoop is the sampling/filtering/integration/scheduling activity.
// It owns the filter window and displacement state exclusively.
func (c *Coordinator) measureLoop(ctx context.Context, captureCh chan<- CaptureEvent, resultCh <-chan captureResult) error {
	now := c.clock.Now()
	c.integrator.Reset(now)
	c.scheduler.Start(now)
	nextReport := now.Add(c.cfg.ReportInterval)

	ticker := c.clock.NewTicker(c.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-resultCh:
			c.handleCaptureResult(res)

		case tick := <-ticker.C():
			// Resolve any finished capture before integrating further.
			select {
			case res := <-resultCh:
				c.handleCaptureResult(res)
			default:
			}

			sample, err := c.readSample(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}

			smoothed, err := c.filter.Push(sample)
			if err != nil {
				c.stats.OutOfOrderSamples.Add(1)
				monitoring.Logf("motion: dropping sample: %v", err)
				continue
			}
			c.lastSmoothed = smoothed
			displacement := c.integrator.Integrate(smoothed)

			if !tick.Before(nextReport) {
				c.queue.Enqueue(&TelemetryRecord{
					ID:           uuid.NewString(),
					Timestamp:    smoothed.Timestamp,
					Velocity:     smoothed.Value,
					Displacement: displacement,
				})
				nextReport = tick.Add(c.cfg.ReportInterval)
			}

			if ev := c.scheduler.Tick(tick, displacement); ev != nil {
				c.stats.CapturesRequested.Add(1)
				select {
				case captureCh <- *ev:
				default:
					// The worker still holds the previous event; should not
					// happen while the scheduler gates one capture in flight.
					c.scheduler.MarkFailed()
				}
			}
		}
	}
}

// handleCaptureResult applies a capture outcome inside the measurement loop.
// Success resets displacement and the inter-capture clock; failure leaves
// both untouched so accumulated motion is not silently swallowed.
func (c *Coordinator) handleCaptureResult(res captureResult) {
	if res.err != nil {
		c.stats.CaptureFailures.Add(1)
		c.scheduler.MarkFailed()
		monitoring.Logf("motion: capture %s failed (displacement %.2f cm retained): %v",
			res.event.FrameID, res.event.Displacement, res.err)
		return
	}

	now := c.clock.Now()
	c.stats.CapturesSucceeded.Add(1)
	c.scheduler.MarkCaptured(now)
	c.integrator.Reset(now)

	c.queue.Enqueue(&TelemetryRecord{
		ID:           uuid.NewString(),
		Timestamp:    now,
		Velocity:     c.lastSmoothed.Value,
		Displacement: res.event.Displacement,
		Images:       res.images,
	})
}

// readSample reads one raw sample, pausing and retrying with backoff when
// the sensor is unavailable. Exhausting the retry budget is fatal.
func (c *Coordinator) readSample(ctx context.Context) (VelocitySample, error) {
	backoff := c.cfg.SensorBackoff
	for attempt := 0; ; attempt++ {
		sample, err := c.source.Read(ctx)
		if err == nil {
			c.stats.SamplesRead.Add(1)
			return sample, nil
		}
		if ctx.Err() != nil {
			return VelocitySample{}, ctx.Err()
		}
		if attempt >= c.cfg.SensorMaxRetries {
			return VelocitySample{}, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
		}
		c.stats.SensorRetries.Add(1)
		monitoring.Logf("motion: sensor read failed (attempt %d/%d), retrying in %s: %v",
			attempt+1, c.cfg.SensorMaxRetries, backoff, err)
		c.clock.Sleep(backoff)
		backoff *= 2
	}
}
