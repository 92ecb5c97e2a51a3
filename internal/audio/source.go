// Package audio captures microphone input and converts it to the mono
// float32 format the speech model expects.
//
// Capture backends:
//   - malgo: miniaudio via cgo (default)
//   - portaudio: PortAudio blocking reads
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrOverflow is returned by Stream.Read together with a valid block when the
// device produced audio faster than it was consumed and some input was lost.
// It is not fatal; the stream remains usable.
var ErrOverflow = errors.New("audio: input overflowed")

// ErrDeviceStopped is returned by Stream.Read when the device stopped on its own.
var ErrDeviceStopped = errors.New("audio: capture device stopped")

// Source opens capture streams on the default input device.
type Source interface {
	// Open starts a mono stream at the device's native sample rate. Each Read
	// on the returned stream yields one block of hop duration.
	Open(ctx context.Context, hop time.Duration) (Stream, error)
	// Close releases backend resources shared by all streams.
	Close() error
}

// Stream is an open capture stream. It is used by a single goroutine.
type Stream interface {
	// SampleRate returns the native rate the device was opened at.
	SampleRate() int
	// Read blocks until one full block is available.
	Read(ctx context.Context) ([]float32, error)
	// Close stops capture and releases the device.
	Close() error
}

// BlockSize returns the number of frames in one hop at the given rate.
func BlockSize(rate int, hop time.Duration) int {
	n := int(math.Round(float64(rate) * hop.Seconds()))
	if n < 1 {
		n = 1
	}
	return n
}

// NewSource returns the capture source for the named backend.
func NewSource(backend string) (Source, error) {
	switch backend {
	case "malgo", "":
		src, err := NewMalgoSource()
		if err != nil {
			return nil, err
		}
		return src, nil
	case "portaudio":
		return NewPortAudioSource(), nil
	default:
		return nil, fmt.Errorf("audio: unknown backend %q (supported: malgo, portaudio)", backend)
	}
}
