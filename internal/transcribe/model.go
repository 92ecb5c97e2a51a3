package transcribe

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/gostt-prompt/internal/metrics"
)

// ErrClosed is returned by Load after the model has been closed.
var ErrClosed = errors.New("transcribe: model closed")

// ModelOptions configures a Model.
type ModelOptions struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Model is a lazily loaded, process-wide Engine handle. The engine is built
// on first use and shared by every caller afterwards. A failed load is
// retried on the next call.
type Model struct {
	load    Loader
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	engine Engine
	closed bool
}

// NewModel returns a Model that builds its engine with load.
func NewModel(load Loader, opts ModelOptions) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{load: load, logger: logger, metrics: opts.Metrics}
}

// Load initializes the engine if it is not loaded yet. Concurrent callers
// block until the first one finishes; the loader runs once per successful load.
func (m *Model) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.engine != nil {
		return nil
	}

	m.logger.Info("loading speech model")
	start := time.Now()
	eng, err := m.callLoader()
	elapsed := time.Since(start)
	m.metrics.ModelLoaded(elapsed, err)
	if err != nil {
		m.logger.Error("speech model load failed", "error", err, "elapsed", elapsed)
		return fmt.Errorf("transcribe: load model: %w", err)
	}

	m.engine = eng
	m.logger.Info("speech model loaded", "elapsed", elapsed.Round(time.Millisecond))
	return nil
}

func (m *Model) callLoader() (eng Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			eng, err = nil, fmt.Errorf("loader panicked: %v", r)
		}
	}()
	eng, err = m.load()
	if err == nil && eng == nil {
		err = errors.New("loader returned no engine")
	}
	return eng, err
}

// Engine returns the shared engine, loading it first if needed.
func (m *Model) Engine() (Engine, error) {
	if err := m.Load(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return nil, ErrClosed
	}
	return m.engine, nil
}

// Loaded reports whether the engine is ready.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine != nil
}

// Close releases the engine. Later loads fail with ErrClosed.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.engine == nil {
		return nil
	}
	err := m.engine.Close()
	m.engine = nil
	return err
}
