package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/chaz8081/gostt-prompt/internal/audio"
	"github.com/chaz8081/gostt-prompt/internal/denoise"
	"github.com/chaz8081/gostt-prompt/internal/metrics"
	"github.com/chaz8081/gostt-prompt/internal/ptt"
	"github.com/chaz8081/gostt-prompt/internal/transcribe"
)

// pipeline is the transcription side shared by the commands.
type pipeline struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	model    *transcribe.Model
	service  *transcribe.Service
}

func (e *env) newPipeline(withDenoise bool) *pipeline {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	met := metrics.New(reg)

	cfg := e.cfg
	model := transcribe.NewModel(transcribe.WhisperLoader(transcribe.WhisperOptions{
		ModelPath: cfg.Transcribe.ModelPath,
		Language:  cfg.Transcribe.Language,
		BeamSize:  cfg.Transcribe.BeamSize,
		Threads:   cfg.Transcribe.Threads,
	}), transcribe.ModelOptions{Logger: e.logger, Metrics: met})

	var dn transcribe.Denoiser
	if withDenoise && cfg.Denoise.Enabled {
		opts := denoise.DefaultOptions()
		opts.SampleRate = cfg.Audio.TargetSampleRate
		opts.Gain = cfg.Denoise.Gain
		opts.PropDecrease = cfg.Denoise.PropDecrease
		opts.Logger = e.logger
		opts.Metrics = met
		dn = denoise.New(opts)
	}

	return &pipeline{
		registry: reg,
		metrics:  met,
		model:    model,
		service:  transcribe.NewService(model, dn, transcribe.ServiceOptions{Logger: e.logger, Metrics: met}),
	}
}

// newRecorder opens the configured capture backend.
func (e *env) newRecorder(p *pipeline, onCaptureError func(error)) (*ptt.Controller, error) {
	src, err := audio.NewSource(e.cfg.Audio.Backend)
	if err != nil {
		return nil, fmt.Errorf("initializing audio: %w", err)
	}
	return ptt.New(src, ptt.Options{
		TargetRate:     e.cfg.Audio.TargetSampleRate,
		Hop:            e.cfg.Audio.Hop,
		WarmupDelay:    e.cfg.Audio.WarmupDelay,
		Logger:         e.logger,
		Metrics:        p.metrics,
		OnCaptureError: onCaptureError,
	}), nil
}

// warm loads the model in the background so the first dictation is fast.
func (e *env) warm(ctx context.Context, p *pipeline) {
	go func() {
		if err := p.service.Warm(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("model pre-warm failed", "error", err, "model", e.cfg.Transcribe.ModelPath)
		}
	}()
}

// serveMetrics exposes /metrics until ctx is done. It does nothing when no
// address is configured.
func (e *env) serveMetrics(ctx context.Context, p *pipeline) {
	addr := e.cfg.Metrics.Address
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(p.registry))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		e.logger.Info("metrics endpoint listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
