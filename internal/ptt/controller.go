// Package ptt implements push-to-talk recording: a start request arms a
// short warm-up delay, then a capture goroutine reads fixed-duration blocks
// from the input device, resamples them to the target rate and buffers them
// in order until stop.
package ptt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chaz8081/gostt-prompt/internal/audio"
	"github.com/chaz8081/gostt-prompt/internal/metrics"
)

// Options configures a Controller. Zero values use the defaults.
type Options struct {
	// TargetRate is the rate buffered chunks are resampled to. Default 16000.
	TargetRate int
	// Hop is the duration of each device read. Default 400ms.
	Hop time.Duration
	// WarmupDelay is the pause between StartRecording and capture. Default 750ms.
	WarmupDelay time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OnCaptureError is called from the capture goroutine when a device
	// error ends a session.
	OnCaptureError func(error)
}

// Controller owns the capture goroutine and the session buffer.
// All methods are safe for concurrent use.
type Controller struct {
	src    audio.Source
	opts   Options
	logger *slog.Logger

	// opMu serializes Start, Stop and Close.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	gen     uint64
	timer   *time.Timer
	chunks  [][]float32
	cancel  context.CancelFunc
	done    chan struct{}
	session string
	closed  bool
}

// New creates a Controller that captures from src.
func New(src audio.Source, opts Options) *Controller {
	if opts.TargetRate <= 0 {
		opts.TargetRate = 16000
	}
	if opts.Hop <= 0 {
		opts.Hop = 400 * time.Millisecond
	}
	if opts.WarmupDelay <= 0 {
		opts.WarmupDelay = 750 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{src: src, opts: opts, logger: logger}
}

// StartRecording requests a new session. It returns immediately; capture
// begins after the warm-up delay. It is a no-op unless the controller is idle.
func (c *Controller) StartRecording() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.state != StateIdle {
		return
	}
	c.gen++
	gen := c.gen
	c.state = StateWarmingUp
	c.timer = time.AfterFunc(c.opts.WarmupDelay, func() { c.begin(gen) })
	c.logger.Debug("recording requested", "warmup", c.opts.WarmupDelay)
}

// begin runs when the warm-up delay for generation gen elapses.
func (c *Controller) begin(gen uint64) {
	c.mu.Lock()
	if c.state != StateWarmingUp || c.gen != gen {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	session := uuid.NewString()

	c.chunks = nil
	c.state = StateRecording
	c.timer = nil
	c.cancel = cancel
	c.done = done
	c.session = session
	c.mu.Unlock()

	c.opts.Metrics.SessionStarted()
	go c.capture(ctx, cancel, gen, session, done)
}

// StopRecording ends the session and returns its audio at the target rate,
// in capture order. It returns nil when nothing was recorded, including when
// called while idle or during the warm-up delay. The capture goroutine has
// exited and released the device by the time it returns.
func (c *Controller) StopRecording() []float32 {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.stop()
}

func (c *Controller) stop() []float32 {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.mu.Unlock()
		return nil
	case StateWarmingUp:
		if c.timer != nil {
			c.timer.Stop()
			c.timer = nil
		}
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Debug("recording cancelled during warm-up")
		return nil
	}

	c.state = StateIdle
	cancel, done, session := c.cancel, c.done, c.session
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	cancel()
	<-done

	// The capture goroutine has exited; the buffer is final.
	c.mu.Lock()
	chunks := c.chunks
	c.chunks = nil
	c.mu.Unlock()

	samples := concat(chunks)
	c.logger.Info("recording stopped", "session", session, "chunks", len(chunks), "samples", len(samples))
	return samples
}

// IsRecording reports whether the capture goroutine is running.
func (c *Controller) IsRecording() bool {
	return c.State() == StateRecording
}

// Active reports whether a session is warming up or recording.
func (c *Controller) Active() bool {
	return c.State() != StateIdle
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close discards any running session and releases the audio source.
// Later StartRecording calls are ignored.
func (c *Controller) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.src.Close(); err != nil {
		return fmt.Errorf("ptt: close audio source: %w", err)
	}
	return nil
}

func (c *Controller) capture(ctx context.Context, cancel context.CancelFunc, gen uint64, session string, done chan struct{}) {
	defer close(done)
	defer cancel()

	err := c.captureLoop(ctx, gen, session)
	c.opts.Metrics.SessionEnded()
	if err == nil || ctx.Err() != nil {
		return
	}

	c.logger.Error("capture failed, recording stopped", "session", session, "error", err)
	c.opts.Metrics.CaptureError()

	c.mu.Lock()
	forced := c.gen == gen && c.state == StateRecording
	if forced {
		c.state = StateIdle
		c.chunks = nil
		c.cancel, c.done = nil, nil
	}
	c.mu.Unlock()

	if forced && c.opts.OnCaptureError != nil {
		c.opts.OnCaptureError(err)
	}
}

// captureLoop reads, resamples and buffers blocks until ctx is cancelled or
// the device fails. The stream is closed before it returns.
func (c *Controller) captureLoop(ctx context.Context, gen uint64, session string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ptt: capture panicked: %v", r)
		}
	}()

	stream, err := c.src.Open(ctx, c.opts.Hop)
	if err != nil {
		return fmt.Errorf("ptt: open input stream: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			c.logger.Warn("closing input stream", "session", session, "error", cerr)
		}
	}()

	rate := stream.SampleRate()
	if rate <= 0 {
		return fmt.Errorf("ptt: input stream reported sample rate %d", rate)
	}
	c.logger.Info("recording started", "session", session, "rate", rate,
		"block", audio.BlockSize(rate, c.opts.Hop))

	for ctx.Err() == nil {
		blk, err := stream.Read(ctx)
		if errors.Is(err, audio.ErrOverflow) {
			c.logger.Warn("audio input overflowed", "session", session)
			c.opts.Metrics.Overflow()
			err = nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ptt: read input stream: %w", err)
		}

		chunk := audio.Resample(blk, rate, c.opts.TargetRate)
		if !c.appendChunk(gen, chunk) {
			return nil
		}
		c.opts.Metrics.ChunkCaptured(len(chunk), c.opts.TargetRate)
	}
	return nil
}

// appendChunk buffers chunk for generation gen. It reports false when the
// session has been superseded.
func (c *Controller) appendChunk(gen uint64, chunk []float32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.chunks = append(c.chunks, chunk)
	return true
}

func concat(chunks [][]float32) []float32 {
	total := 0
	for _, ch := range chunks {
		total += len(ch)
	}
	if total == 0 {
		return nil
	}
	out := make([]float32, 0, total)
	for _, ch := range chunks {
		out = append(out, ch...)
	}
	return out
}
