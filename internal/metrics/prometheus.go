// Package metrics exposes Prometheus instrumentation for the capture and
// transcription pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the dictation pipeline.
type Metrics struct {
	// Capture metrics
	SessionsStarted prometheus.Counter
	ChunksCaptured  prometheus.Counter
	CapturedSeconds prometheus.Counter
	Overflows       prometheus.Counter
	CaptureErrors   prometheus.Counter
	Recording       prometheus.Gauge

	// Model metrics
	ModelLoads        prometheus.Counter
	ModelLoadFailures prometheus.Counter
	ModelLoadDuration prometheus.Histogram

	// Transcription metrics
	Transcriptions        prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	DenoiseFailures       prometheus.Counter
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_sessions_started_total",
			Help: "Total number of push-to-talk sessions that began capturing",
		}),
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_chunks_captured_total",
			Help: "Total number of resampled audio chunks appended to a session",
		}),
		CapturedSeconds: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_captured_audio_seconds_total",
			Help: "Total seconds of audio captured at the target sample rate",
		}),
		Overflows: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_capture_overflows_total",
			Help: "Total number of input overflows reported by the capture device",
		}),
		CaptureErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_capture_errors_total",
			Help: "Total number of sessions aborted by a device error",
		}),
		Recording: f.NewGauge(prometheus.GaugeOpts{
			Name: "gostt_recording",
			Help: "1 while a capture session is running",
		}),
		ModelLoads: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_model_loads_total",
			Help: "Total number of successful speech model initializations",
		}),
		ModelLoadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_model_load_failures_total",
			Help: "Total number of failed speech model initializations",
		}),
		ModelLoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gostt_model_load_duration_seconds",
			Help:    "Time spent initializing the speech model",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		Transcriptions: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_transcriptions_total",
			Help: "Total number of transcription requests",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_transcription_failures_total",
			Help: "Total number of transcription requests that degraded to empty text",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gostt_transcription_duration_seconds",
			Help:    "Time spent in noise reduction and decoding",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		DenoiseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gostt_denoise_failures_total",
			Help: "Total number of noise reduction passes that fell back to the raw audio",
		}),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SessionStarted records the start of a capture session.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.Recording.Set(1)
}

// SessionEnded records the end of a capture session, for any reason.
func (m *Metrics) SessionEnded() {
	if m == nil {
		return
	}
	m.Recording.Set(0)
}

// ChunkCaptured records one appended chunk of n samples at rate Hz.
func (m *Metrics) ChunkCaptured(n, rate int) {
	if m == nil || rate <= 0 {
		return
	}
	m.ChunksCaptured.Inc()
	m.CapturedSeconds.Add(float64(n) / float64(rate))
}

// Overflow records a device overflow.
func (m *Metrics) Overflow() {
	if m == nil {
		return
	}
	m.Overflows.Inc()
}

// CaptureError records a fatal capture error.
func (m *Metrics) CaptureError() {
	if m == nil {
		return
	}
	m.CaptureErrors.Inc()
}

// ModelLoaded records a model initialization attempt.
func (m *Metrics) ModelLoaded(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ModelLoadFailures.Inc()
		return
	}
	m.ModelLoads.Inc()
	m.ModelLoadDuration.Observe(elapsed.Seconds())
}

// Transcribed records a transcription request. failed is true when the
// result degraded to empty text because of an error.
func (m *Metrics) Transcribed(elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.Transcriptions.Inc()
	m.TranscriptionDuration.Observe(elapsed.Seconds())
	if failed {
		m.TranscriptionFailures.Inc()
	}
}

// DenoiseFailed records a noise reduction fallback.
func (m *Metrics) DenoiseFailed() {
	if m == nil {
		return
	}
	m.DenoiseFailures.Inc()
}
