package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// malgoQueueBlocks is how many undelivered blocks a malgo stream holds before
// it starts dropping input.
const malgoQueueBlocks = 8

// MalgoSource opens capture streams through miniaudio.
type MalgoSource struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoSource initializes the audio context. Call Close() when done.
func NewMalgoSource() (*MalgoSource, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}
	return &MalgoSource{ctx: ctx}, nil
}

// Open starts the default capture device at its native sample rate, mono.
func (s *MalgoSource) Open(_ context.Context, hop time.Duration) (Stream, error) {
	deviceCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = 1
	deviceCfg.SampleRate = 0 // native rate

	st := &malgoStream{
		blocks:  make(chan []float32, malgoQueueBlocks),
		stopped: make(chan struct{}),
	}

	callbacks := malgo.DeviceCallbacks{
		Data: st.onData,
		Stop: st.onStop,
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceCfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("initializing capture device: %w", err)
	}

	st.device = device
	st.rate = int(device.SampleRate())
	st.channels = device.CaptureChannels()
	if st.channels == 0 {
		st.channels = 1
	}
	st.blockSize = BlockSize(st.rate, hop)

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("starting capture device: %w", err)
	}

	return st, nil
}

// Devices lists the capture devices known to the audio context.
func (s *MalgoSource) Devices() ([]DeviceInfo, error) {
	infos, err := s.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("listing capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		d := DeviceInfo{Name: info.Name(), Default: info.IsDefault != 0}
		// Format details need a per-device query; a failure only loses the rates.
		if full, err := s.ctx.DeviceInfo(malgo.Capture, info.ID, malgo.Shared); err == nil {
			for _, f := range full.Formats {
				if f.SampleRate != 0 {
					d.SampleRates = appendUnique(d.SampleRates, int(f.SampleRate))
				}
			}
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Close releases the audio context.
func (s *MalgoSource) Close() error {
	if s.ctx == nil {
		return nil
	}
	if err := s.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitializing audio context: %w", err)
	}
	s.ctx.Free()
	s.ctx = nil
	return nil
}

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	Name        string
	Default     bool
	SampleRates []int
}

// malgoStream re-blocks miniaudio callbacks into fixed-size reads.
type malgoStream struct {
	device    *malgo.Device
	rate      int
	channels  uint32
	blockSize int

	// pending is only touched from the device callback.
	pending []float32

	blocks     chan []float32
	overflowed atomic.Bool
	stopped    chan struct{}
	stopOnce   sync.Once
	closeOnce  sync.Once
}

func (st *malgoStream) SampleRate() int { return st.rate }

func (st *malgoStream) Read(ctx context.Context) ([]float32, error) {
	select {
	case blk := <-st.blocks:
		if st.overflowed.Swap(false) {
			return blk, ErrOverflow
		}
		return blk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-st.stopped:
		return nil, ErrDeviceStopped
	}
}

func (st *malgoStream) Close() error {
	st.closeOnce.Do(func() {
		// Uninit waits for the device thread, so no callback runs afterwards.
		st.device.Uninit()
	})
	return nil
}

// onData is the malgo callback invoked when audio data is available.
// pSample contains the captured audio frames as raw bytes (float32 format).
func (st *malgoStream) onData(_, pSample []byte, frameCount uint32) {
	samples := bytesToFloat32(pSample, frameCount*st.channels)
	if st.channels > 1 {
		samples = firstChannel(samples, int(st.channels))
	}

	st.pending = append(st.pending, samples...)
	for len(st.pending) >= st.blockSize {
		blk := make([]float32, st.blockSize)
		copy(blk, st.pending)
		st.pending = st.pending[:copy(st.pending, st.pending[st.blockSize:])]

		select {
		case st.blocks <- blk:
		default:
			st.overflowed.Store(true)
		}
	}
}

func (st *malgoStream) onStop() {
	st.stopOnce.Do(func() { close(st.stopped) })
}

// bytesToFloat32 converts raw bytes (little-endian float32) to a float32 slice.
func bytesToFloat32(data []byte, sampleCount uint32) []float32 {
	samples := make([]float32, 0, sampleCount)
	for i := uint32(0); i < sampleCount; i++ {
		offset := i * 4
		if offset+4 > uint32(len(data)) {
			break
		}
		bits := binary.LittleEndian.Uint32(data[offset : offset+4])
		samples = append(samples, math.Float32frombits(bits))
	}
	return samples
}

// firstChannel keeps channel 0 of interleaved frames.
func firstChannel(interleaved []float32, channels int) []float32 {
	out := make([]float32, len(interleaved)/channels)
	for i := range out {
		out[i] = interleaved[i*channels]
	}
	return out
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
