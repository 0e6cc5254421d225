package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// CaptureOptions tunes a capture stream.
type CaptureOptions struct {
	// KeepRaw retains every captured byte for RawPCM. Only debug dumps need it.
	KeepRaw bool
}

// Capture streams fixed-size PCM chunks from one selected source. Backends
// push raw frames through onPCM; Capture owns chunking and shutdown.
type Capture struct {
	device  Device
	backend Backend
	keepRaw bool

	stopBackend func()

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pending []byte
	rawPCM  []byte
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
}

// StartCapture opens a 16kHz mono s16 stream on backend and begins delivering chunks.
// The stream stops when ctx is cancelled.
func StartCapture(ctx context.Context, backend Backend, selected Device, opts CaptureOptions) (*Capture, error) {
	capture := newCapture(selected, backend, opts)

	var err error
	switch backend {
	case BackendPulse, "":
		capture.backend = BackendPulse
		err = startPulse(capture)
	case BackendMiniaudio:
		err = startMiniaudio(capture)
	default:
		err = fmt.Errorf("%w %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		capture.Close()
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = capture.Stop()
		case <-capture.stopCh:
		}
	}()

	return capture, nil
}

func newCapture(selected Device, backend Backend, opts CaptureOptions) *Capture {
	return &Capture{
		device:  selected,
		backend: backend,
		keepRaw: opts.KeepRaw,
		chunks:  make(chan []byte, 128),
		stopCh:  make(chan struct{}),
	}
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

func (c *Capture) Backend() Backend {
	return c.backend
}

// Chunks returns the PCM stream as fixed-size byte slices.
func (c *Capture) Chunks() <-chan []byte {
	return c.chunks
}

// BytesCaptured reports total bytes accepted from the backend.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// RawPCM returns a snapshot of captured PCM when KeepRaw was requested.
func (c *Capture) RawPCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.rawPCM))
	copy(out, c.rawPCM)
	return out
}

// Stop halts the backend, flushes residual PCM, and closes Chunks exactly once.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	stopBackend := c.stopBackend
	c.mu.Unlock()

	if stopBackend != nil {
		stopBackend()
	}

	c.inflight.Wait()

	c.mu.Lock()
	pending := append([]byte(nil), c.pending...)
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		select {
		case c.chunks <- pending:
		default:
		}
	}

	close(c.chunks)
	return nil
}

// Close is a convenience alias for Stop.
func (c *Capture) Close() {
	_ = c.Stop()
}

// onPCM receives raw backend frames and emits chunkSizeBytes slices to c.chunks.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	select {
	case <-c.stopCh:
		return 0, io.EOF
	default:
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as c.stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)

	if c.keepRaw {
		c.rawPCM = append(c.rawPCM, buffer...)
	}
	c.pending = append(c.pending, buffer...)

	chunks := make([][]byte, 0, len(c.pending)/chunkSizeBytes)
	for len(c.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, c.pending[:chunkSizeBytes])
		c.pending = c.pending[chunkSizeBytes:]
		chunks = append(chunks, chunk)
	}
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}

	return len(buffer), nil
}
