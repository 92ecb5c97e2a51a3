package audio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource opens blocking PortAudio capture streams.
type PortAudioSource struct{}

// NewPortAudioSource returns a PortAudio-backed source. PortAudio itself is
// initialized per stream and terminated when the stream closes.
func NewPortAudioSource() *PortAudioSource {
	return &PortAudioSource{}
}

// Open starts the default input device at its default sample rate, mono,
// with one hop per buffer.
func (s *PortAudioSource) Open(_ context.Context, hop time.Duration) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("default input device: %w", err)
	}

	rate := int(dev.DefaultSampleRate)
	buf := make([]float32, BlockSize(rate, hop))

	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(rate)
	params.FramesPerBuffer = len(buf)

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return &portAudioStream{stream: stream, buf: buf, rate: rate}, nil
}

// Close is a no-op; each stream owns its PortAudio session.
func (s *PortAudioSource) Close() error { return nil }

type portAudioStream struct {
	stream *portaudio.Stream
	buf    []float32
	rate   int
}

func (st *portAudioStream) SampleRate() int { return st.rate }

func (st *portAudioStream) Read(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := st.stream.Read()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("stream read: %w", err)
	}

	blk := make([]float32, len(st.buf))
	copy(blk, st.buf)
	if err != nil {
		return blk, ErrOverflow
	}
	return blk, nil
}

func (st *portAudioStream) Close() error {
	var err error
	if stopErr := st.stream.Stop(); stopErr != nil {
		err = fmt.Errorf("stop stream: %w", stopErr)
	}
	if closeErr := st.stream.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close stream: %w", closeErr)
	}
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = fmt.Errorf("portaudio terminate: %w", termErr)
	}
	return err
}
