package ptt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chaz8081/gostt-prompt/internal/audio"
	"github.com/chaz8081/gostt-prompt/internal/metrics"
)

type fakeRead struct {
	blk []float32
	err error
}

// fakeStream delivers whatever the test sends on reads.
type fakeStream struct {
	rate  int
	reads chan fakeRead

	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) SampleRate() int { return s.rate }

func (s *fakeStream) Read(ctx context.Context) ([]float32, error) {
	select {
	case r := <-s.reads:
		return r.blk, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeSource hands out a fresh fakeStream per Open and announces it on opened.
type fakeSource struct {
	rate    int
	openErr error
	opened  chan *fakeStream

	mu     sync.Mutex
	opens  int
	closed bool
}

func newFakeSource(rate int) *fakeSource {
	return &fakeSource{rate: rate, opened: make(chan *fakeStream, 4)}
}

func (s *fakeSource) Open(_ context.Context, _ time.Duration) (audio.Stream, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	st := &fakeStream{rate: s.rate, reads: make(chan fakeRead)}
	s.opened <- st
	return st, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func waitOpened(t *testing.T, src *fakeSource) *fakeStream {
	t.Helper()
	select {
	case st := <-src.opened:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("capture stream was never opened")
		return nil
	}
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func filled(n int, v float32) []float32 {
	b := make([]float32, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func newTestController(src *fakeSource, opts Options) *Controller {
	if opts.WarmupDelay == 0 {
		opts.WarmupDelay = time.Millisecond
	}
	return New(src, opts)
}

func TestStopBeforeStartReturnsNil(t *testing.T) {
	c := newTestController(newFakeSource(16000), Options{})

	if got := c.StopRecording(); got != nil {
		t.Errorf("StopRecording() = %d samples, want nil", len(got))
	}
	if got := c.StopRecording(); got != nil {
		t.Errorf("second StopRecording() = %d samples, want nil", len(got))
	}
	if c.IsRecording() || c.Active() {
		t.Error("controller should be idle")
	}
}

func TestThreeBlocksOfSilence(t *testing.T) {
	tests := []struct {
		name  string
		rate  int
		block int
	}{
		{"native 16k", 16000, 6400},
		{"native 48k", 48000, 19200},
		{"native 44.1k", 44100, 17640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource(tt.rate)
			c := newTestController(src, Options{})

			c.StartRecording()
			st := waitOpened(t, src)
			waitState(t, c, StateRecording)

			for i := 0; i < 3; i++ {
				st.reads <- fakeRead{blk: make([]float32, tt.block)}
			}

			got := c.StopRecording()
			if len(got) != 3*6400 {
				t.Errorf("StopRecording() = %d samples, want %d", len(got), 3*6400)
			}
			if !st.isClosed() {
				t.Error("stream should be closed when StopRecording returns")
			}
			if c.State() != StateIdle {
				t.Errorf("state = %v, want idle", c.State())
			}
		})
	}
}

func TestStopPreservesCaptureOrder(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{})

	c.StartRecording()
	st := waitOpened(t, src)

	const n = 10
	for i := 0; i < n; i++ {
		st.reads <- fakeRead{blk: filled(4, float32(i))}
	}

	got := c.StopRecording()
	if len(got) != 4*n {
		t.Fatalf("len = %d, want %d", len(got), 4*n)
	}
	for i, v := range got {
		if want := float32(i / 4); v != want {
			t.Fatalf("got[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestStartWhileRecordingIsNoop(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{})

	c.StartRecording()
	st := waitOpened(t, src)
	waitState(t, c, StateRecording)

	st.reads <- fakeRead{blk: filled(100, 1)}
	c.StartRecording()
	st.reads <- fakeRead{blk: filled(100, 2)}

	if !c.IsRecording() {
		t.Error("IsRecording() = false after second StartRecording")
	}
	if n := src.openCount(); n != 1 {
		t.Errorf("source opened %d times, want 1", n)
	}

	got := c.StopRecording()
	if len(got) != 200 || got[0] != 1 || got[199] != 2 {
		t.Errorf("buffer was disturbed by second start: len=%d", len(got))
	}
}

func TestStartDuringWarmupIsNoop(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{WarmupDelay: 50 * time.Millisecond})

	c.StartRecording()
	c.StartRecording()
	waitOpened(t, src)
	waitState(t, c, StateRecording)

	time.Sleep(100 * time.Millisecond)
	if n := src.openCount(); n != 1 {
		t.Errorf("source opened %d times, want 1", n)
	}
	c.StopRecording()
}

func TestStopDuringWarmup(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{WarmupDelay: 100 * time.Millisecond})

	c.StartRecording()
	if c.State() != StateWarmingUp {
		t.Fatalf("state = %v, want warming-up", c.State())
	}
	if !c.Active() || c.IsRecording() {
		t.Error("warming up should be active but not recording")
	}

	if got := c.StopRecording(); got != nil {
		t.Errorf("StopRecording() during warm-up = %d samples, want nil", len(got))
	}

	time.Sleep(200 * time.Millisecond)
	if n := src.openCount(); n != 0 {
		t.Errorf("source opened %d times after cancelled warm-up, want 0", n)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestStaleWarmupCallbackIsIgnored(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{WarmupDelay: time.Hour})

	c.StartRecording()
	c.mu.Lock()
	stale := c.gen
	c.mu.Unlock()

	c.StopRecording()
	c.StartRecording()

	c.begin(stale)
	if c.State() != StateWarmingUp {
		t.Errorf("state = %v, want warming-up", c.State())
	}
	if n := src.openCount(); n != 0 {
		t.Errorf("stale callback opened the source %d times", n)
	}
	c.StopRecording()
}

func TestStartImmediateStopReturnsNil(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{})

	c.StartRecording()
	st := waitOpened(t, src)
	waitState(t, c, StateRecording)

	if got := c.StopRecording(); got != nil {
		t.Errorf("StopRecording() with no chunks = %d samples, want nil", len(got))
	}
	if !st.isClosed() {
		t.Error("stream should be closed")
	}
}

func TestSessionsDoNotShareBuffers(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{})

	c.StartRecording()
	st := waitOpened(t, src)
	st.reads <- fakeRead{blk: filled(10, 1)}
	if got := c.StopRecording(); len(got) != 10 {
		t.Fatalf("first session = %d samples, want 10", len(got))
	}

	c.StartRecording()
	st = waitOpened(t, src)
	st.reads <- fakeRead{blk: filled(5, 2)}
	got := c.StopRecording()
	if len(got) != 5 || got[0] != 2 {
		t.Errorf("second session = %v, want five 2s", got)
	}
}

func TestCaptureErrorForcesIdle(t *testing.T) {
	src := newFakeSource(16000)
	met := metrics.New(prometheus.NewRegistry())
	errs := make(chan error, 1)
	c := newTestController(src, Options{
		Metrics:        met,
		OnCaptureError: func(err error) { errs <- err },
	})

	c.StartRecording()
	st := waitOpened(t, src)
	st.reads <- fakeRead{blk: filled(10, 1)}
	st.reads <- fakeRead{err: errors.New("device unplugged")}

	select {
	case err := <-errs:
		if err == nil {
			t.Error("OnCaptureError called with nil")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnCaptureError was not called")
	}

	waitState(t, c, StateIdle)
	if !st.isClosed() {
		t.Error("stream should be closed after a capture error")
	}
	if got := c.StopRecording(); got != nil {
		t.Errorf("StopRecording() after capture error = %d samples, want nil", len(got))
	}
	if v := testutil.ToFloat64(met.CaptureErrors); v != 1 {
		t.Errorf("capture errors = %v, want 1", v)
	}
	if v := testutil.ToFloat64(met.Recording); v != 0 {
		t.Errorf("recording gauge = %v, want 0", v)
	}
}

func TestOpenErrorForcesIdle(t *testing.T) {
	src := newFakeSource(16000)
	src.openErr = errors.New("no input device")
	errs := make(chan error, 1)
	c := newTestController(src, Options{OnCaptureError: func(err error) { errs <- err }})

	c.StartRecording()

	select {
	case err := <-errs:
		if !errors.Is(err, src.openErr) {
			t.Errorf("error = %v, want wrapped open error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnCaptureError was not called")
	}
	waitState(t, c, StateIdle)
}

func TestOverflowIsNotFatal(t *testing.T) {
	src := newFakeSource(16000)
	met := metrics.New(prometheus.NewRegistry())
	c := newTestController(src, Options{Metrics: met})

	c.StartRecording()
	st := waitOpened(t, src)
	st.reads <- fakeRead{blk: filled(10, 1), err: audio.ErrOverflow}
	st.reads <- fakeRead{blk: filled(10, 2)}

	if !c.IsRecording() {
		t.Error("overflow should not stop recording")
	}
	got := c.StopRecording()
	if len(got) != 20 {
		t.Errorf("StopRecording() = %d samples, want 20", len(got))
	}
	if v := testutil.ToFloat64(met.Overflows); v != 1 {
		t.Errorf("overflows = %v, want 1", v)
	}
	if v := testutil.ToFloat64(met.ChunksCaptured); v != 2 {
		t.Errorf("chunks captured = %v, want 2", v)
	}
}

func TestCloseStopsSessionAndSource(t *testing.T) {
	src := newFakeSource(16000)
	c := newTestController(src, Options{})

	c.StartRecording()
	st := waitOpened(t, src)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !st.isClosed() || !src.closed {
		t.Error("Close() should release the stream and the source")
	}

	c.StartRecording()
	if c.Active() {
		t.Error("StartRecording after Close should be ignored")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConcurrentStartStop(t *testing.T) {
	src := newFakeSource(16000)
	src.opened = make(chan *fakeStream, 1000)
	c := newTestController(src, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.StartRecording()
				c.StopRecording()
			}
		}()
	}
	wg.Wait()

	c.StopRecording()
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateWarmingUp, "warming-up"},
		{StateRecording, "recording"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
