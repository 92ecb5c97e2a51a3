package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/gostt-prompt/internal/metrics"
)

// Denoiser cleans up audio before decoding. It must return usable audio even
// when it cannot improve it.
type Denoiser interface {
	Reduce(samples []float32) []float32
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Service transcribes recordings with a shared Model. Denoiser may be nil.
type Service struct {
	model    *Model
	denoiser Denoiser
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService creates a Service.
func NewService(model *Model, denoiser Denoiser, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{model: model, denoiser: denoiser, logger: logger, metrics: opts.Metrics}
}

// Transcribe returns the text spoken in samples (mono, 16 kHz). It loads the
// model on first use and blocks while doing so. Any failure, including a
// panicking engine, is logged and yields "".
func (s *Service) Transcribe(samples []float32) (text string) {
	if len(samples) == 0 {
		return ""
	}

	start := time.Now()
	failed := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("transcription panicked", "panic", fmt.Sprint(r))
			text, failed = "", true
		}
		s.metrics.Transcribed(time.Since(start), failed)
	}()

	eng, err := s.model.Engine()
	if err != nil {
		s.logger.Error("transcription skipped, model unavailable", "error", err)
		failed = true
		return ""
	}

	audio := samples
	if s.denoiser != nil {
		audio = s.denoiser.Reduce(samples)
	}

	text, err = eng.Process(audio)
	if err != nil {
		s.logger.Error("transcription failed", "error", err, "samples", len(samples))
		failed = true
		return ""
	}

	s.logger.Debug("transcription complete", "chars", len(text), "elapsed", time.Since(start))
	return text
}

// Warm loads the model, returning early if ctx is done first. The load
// itself keeps running in the background and later callers wait for it.
func (s *Service) Warm(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.model.Load() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
