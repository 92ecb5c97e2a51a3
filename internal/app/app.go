// Package app connects control events to the push-to-talk recorder and the
// transcriber, keeps the user-facing status, and delivers finished text.
// Transcription runs off the control goroutine so input stays responsive.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/gostt-prompt/internal/hotkey"
)

// Recorder captures audio between start and stop.
type Recorder interface {
	StartRecording()
	StopRecording() []float32
	Active() bool
}

// Transcriber converts 16 kHz audio to text. It returns "" on failure.
type Transcriber interface {
	Transcribe(samples []float32) string
}

// TextSink receives transcribed text.
type TextSink interface {
	Inject(text string) error
}

// Status is the label shown to the user.
type Status int

const (
	StatusReady Status = iota
	StatusRecording
	StatusProcessing
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusRecording:
		return "Recording"
	case StatusProcessing:
		return "Processing"
	default:
		return "Unknown"
	}
}

// Options configures an App.
type Options struct {
	// SampleRate of the audio returned by the recorder. Default 16000.
	SampleRate int
	// MinDuration is the shortest recording worth transcribing. Default 300ms.
	MinDuration time.Duration

	Logger *slog.Logger
	// OnStatus is called whenever the status changes.
	OnStatus func(Status)
	// OnNotice is called with short user-facing messages such as
	// "No audio captured".
	OnNotice func(string)
}

// App drives one recorder and one transcriber.
type App struct {
	rec    Recorder
	tr     Transcriber
	sink   TextSink
	opts   Options
	logger *slog.Logger

	// ctl serializes Start, Stop and Toggle.
	ctl sync.Mutex

	mu      sync.Mutex
	status  Status
	pending int

	wg sync.WaitGroup
}

// New creates an App.
func New(rec Recorder, tr Transcriber, sink TextSink, opts Options) *App {
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if opts.MinDuration <= 0 {
		opts.MinDuration = 300 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{rec: rec, tr: tr, sink: sink, opts: opts, logger: logger}
}

// Status returns the current status.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Start begins recording. The status switches to Recording before capture
// actually starts.
func (a *App) Start() {
	a.ctl.Lock()
	defer a.ctl.Unlock()

	a.rec.StartRecording()
	a.refresh()
	a.logger.Info("recording requested")
}

// Stop ends recording and hands the audio to the transcriber in the
// background. Sessions with no audio, or too little, skip transcription.
func (a *App) Stop() {
	a.ctl.Lock()
	defer a.ctl.Unlock()

	a.begin()
	samples := a.rec.StopRecording()
	if samples == nil {
		a.logger.Info("no audio captured")
		a.notice("No audio captured")
		a.finish()
		return
	}

	duration := time.Duration(float64(len(samples)) / float64(a.opts.SampleRate) * float64(time.Second))
	if duration < a.opts.MinDuration {
		a.logger.Info("recording too short, skipping", "duration", duration.Round(time.Millisecond))
		a.notice("Recording too short")
		a.finish()
		return
	}

	a.logger.Info("transcribing", "duration", duration.Round(time.Millisecond), "samples", len(samples))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.finish()
		a.deliver(samples)
	}()
}

// Toggle stops an active session or starts a new one.
func (a *App) Toggle() {
	if a.rec.Active() {
		a.Stop()
		return
	}
	a.Start()
}

// CaptureFailed reports a capture error that ended a session.
func (a *App) CaptureFailed(err error) {
	a.logger.Error("recording failed", "error", err)
	a.notice(fmt.Sprintf("Recording failed: %v", err))
	a.refresh()
}

// Run dispatches events until ctx is cancelled or the channel closes.
// A session still recording at that point is discarded.
func (a *App) Run(ctx context.Context, events <-chan hotkey.Event) error {
	defer func() {
		if a.rec.Active() {
			a.rec.StopRecording()
			a.refresh()
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Type {
			case hotkey.EventStart:
				a.Start()
			case hotkey.EventStop:
				a.Stop()
			case hotkey.EventToggle:
				a.Toggle()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until all background transcriptions have finished.
func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) deliver(samples []float32) {
	start := time.Now()
	text := a.tr.Transcribe(samples)
	elapsed := time.Since(start).Round(time.Millisecond)

	if text == "" {
		a.logger.Info("nothing transcribed", "elapsed", elapsed)
		a.notice("Nothing transcribed")
		return
	}

	a.logger.Info("transcribed", "elapsed", elapsed, "chars", len(text))
	if err := a.sink.Inject(text); err != nil {
		a.logger.Error("text delivery failed", "error", err)
		a.notice("Could not deliver text")
	}
}

// begin marks one transcription job as pending and shows Processing.
func (a *App) begin() {
	a.mu.Lock()
	a.pending++
	a.mu.Unlock()
	a.setStatus(StatusProcessing)
}

// finish marks one transcription job as done.
func (a *App) finish() {
	a.mu.Lock()
	a.pending--
	a.mu.Unlock()
	a.refresh()
}

// refresh recomputes the status and reports a change.
func (a *App) refresh() {
	active := a.rec.Active()

	a.mu.Lock()
	next := StatusReady
	switch {
	case active:
		next = StatusRecording
	case a.pending > 0:
		next = StatusProcessing
	}
	a.mu.Unlock()

	a.setStatus(next)
}

func (a *App) setStatus(next Status) {
	a.mu.Lock()
	changed := next != a.status
	a.status = next
	a.mu.Unlock()

	if changed && a.opts.OnStatus != nil {
		a.opts.OnStatus(next)
	}
}

func (a *App) notice(msg string) {
	if a.opts.OnNotice != nil {
		a.opts.OnNotice(msg)
	}
}
