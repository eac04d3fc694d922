package serialmux

import (
	"io"
	"time"
)

// MockSerialPort implements SerialPorter for development without hardware.
type MockSerialPort struct {
	io.Reader
	writer *io.PipeWriter
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	// commands to the mock device are accepted and discarded
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	return m.writer.Close()
}

// NewMockSerialMux creates a SerialMux backed by a synthetic port that
// replays the given lines at the requested interval, looping forever.
// Used by dev mode and by fixture-driven tests.
func NewMockSerialMux(lines []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()
	mockPort := &MockSerialPort{Reader: r, writer: w}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			if len(lines) == 0 {
				continue
			}
			if _, err := w.Write([]byte(lines[i%len(lines)] + "\n")); err != nil {
				return
			}
			i++
		}
	}()

	return NewSerialMux(mockPort)
}
