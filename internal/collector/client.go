// Package collector delivers station telemetry to the remote collector
// service, over HTTP or MQTT.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/motion"
	"github.com/banshee-data/surface.report/internal/timeutil"
)

// ErrServerRejected reports a non-success HTTP status from the collector.
// The sender treats it like any other delivery failure and retries.
var ErrServerRejected = errors.New("collector rejected request")

// Client talks to the collector's HTTP API:
//
//	GET  /ping            204 when ready
//	POST /fabric_movement 201 on accepted movement measurement
//	POST /pictures_batch  201 on accepted capture batch
//
// Picture payloads are base64 strings on the wire, which encoding/json
// produces for []byte fields.
type Client struct {
	baseURL string
	httpc   *http.Client
	clock   timeutil.Clock
}

var _ motion.Transport = (*Client)(nil)

// NewClient returns a client for the collector at baseURL
// (e.g. "http://127.0.0.1:5000"). A zero timeout defaults to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
		clock:   timeutil.NewRealClock(),
	}
}

// Ping reports whether the collector is up and ready to accept telemetry.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusNoContent
}

// WaitUntilReady pings the collector until it responds or ctx expires.
func (c *Client) WaitUntilReady(ctx context.Context, interval time.Duration) error {
	if interval == 0 {
		interval = 5 * time.Second
	}
	for {
		if c.Ping(ctx) {
			return nil
		}
		monitoring.Logf("collector: not ready at %s, retrying in %s", c.baseURL, interval)
		select {
		case <-ctx.Done():
			return fmt.Errorf("collector never became ready: %w", ctx.Err())
		case <-c.clock.After(interval):
		}
	}
}

// movementPayload is the /fabric_movement request body.
type movementPayload struct {
	Velocity     float64 `json:"velocity"`
	Displacement float64 `json:"displacement"`
}

// batchPayload is the /pictures_batch request body.
type batchPayload struct {
	Lights []motion.ImageMetadata `json:"lights"`
}

// Send delivers one telemetry record. Records carrying capture images go to
// /pictures_batch; plain movement measurements go to /fabric_movement.
func (c *Client) Send(ctx context.Context, rec *motion.TelemetryRecord) error {
	if len(rec.Images) > 0 {
		return c.post(ctx, "/pictures_batch", batchPayload{Lights: rec.Images})
	}
	return c.post(ctx, "/fabric_movement", movementPayload{
		Velocity:     rec.Velocity,
		Displacement: rec.Displacement,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST %s returned %d: %w", path, resp.StatusCode, ErrServerRejected)
	}
	return nil
}
