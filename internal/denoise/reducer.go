// Package denoise boosts quiet recordings and suppresses background noise
// with non-stationary spectral gating before they reach the speech model.
package denoise

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"time"

	"github.com/chaz8081/gostt-prompt/internal/metrics"
)

var (
	// ErrTooShort is returned when the input is shorter than one FFT frame.
	ErrTooShort = errors.New("denoise: signal too short")
	// ErrNumerical is returned when the output contains NaN or Inf.
	ErrNumerical = errors.New("denoise: non-finite output")
)

// Options configures a Reducer. Start from DefaultOptions and override fields.
type Options struct {
	SampleRate int
	// Gain is applied to the signal before gating.
	Gain float64
	// PropDecrease is how far masked bins are attenuated, up to 1 (full).
	// Zero uses the default like the other fields.
	PropDecrease float64

	NFFT         int
	Hop          int
	TimeConstant time.Duration

	// Mask smoothing extents.
	FreqMaskSmoothHz float64
	TimeMaskSmooth   time.Duration

	Threshold    float64
	SigmoidSlope float64

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// DefaultOptions returns the settings tuned for 16 kHz dictation.
func DefaultOptions() Options {
	return Options{
		SampleRate:       16000,
		Gain:             2.0,
		PropDecrease:     0.7,
		NFFT:             1024,
		Hop:              256,
		TimeConstant:     2 * time.Second,
		FreqMaskSmoothHz: 500,
		TimeMaskSmooth:   50 * time.Millisecond,
		Threshold:        2,
		SigmoidSlope:     10,
	}
}

// Reducer applies gain and non-stationary noise reduction. It is safe for
// concurrent use.
type Reducer struct {
	opts     Options
	freqTaps []float64
	timeTaps []float64
	logger   *slog.Logger
}

// New creates a Reducer. Zero-valued sizing fields fall back to the defaults.
func New(opts Options) *Reducer {
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.PropDecrease <= 0 {
		opts.PropDecrease = def.PropDecrease
	}
	if opts.Gain == 0 {
		opts.Gain = def.Gain
	}
	if opts.NFFT <= 0 {
		opts.NFFT = def.NFFT
	}
	if opts.Hop <= 0 {
		opts.Hop = def.Hop
	}
	if opts.TimeConstant <= 0 {
		opts.TimeConstant = def.TimeConstant
	}
	if opts.FreqMaskSmoothHz <= 0 {
		opts.FreqMaskSmoothHz = def.FreqMaskSmoothHz
	}
	if opts.TimeMaskSmooth <= 0 {
		opts.TimeMaskSmooth = def.TimeMaskSmooth
	}
	if opts.Threshold == 0 {
		opts.Threshold = def.Threshold
	}
	if opts.SigmoidSlope == 0 {
		opts.SigmoidSlope = def.SigmoidSlope
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	binHz := float64(opts.SampleRate) / (float64(opts.NFFT) / 2)
	frameMs := float64(opts.Hop) / float64(opts.SampleRate) * 1000
	nFreq := int(opts.FreqMaskSmoothHz / binHz)
	nTime := int(float64(opts.TimeMaskSmooth.Milliseconds()) / frameMs)

	return &Reducer{
		opts:     opts,
		freqTaps: triangle(nFreq),
		timeTaps: triangle(nTime),
		logger:   logger,
	}
}

// Process returns the gained and noise-reduced signal. The output has the
// same length as the input.
func (r *Reducer) Process(samples []float32) ([]float32, error) {
	if len(samples) < r.opts.NFFT {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", ErrTooShort, len(samples), r.opts.NFFT)
	}

	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s) * r.opts.Gain
	}

	st := forward(x, r.opts.NFFT, r.opts.Hop)
	mask := r.mask(st)

	p := r.opts.PropDecrease
	for t, frame := range st.frames {
		for k := range frame {
			frame[k] *= complex(mask[t][k]*p+(1-p), 0)
		}
	}

	y := st.inverse()
	out := make([]float32, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNumerical
		}
		out[i] = float32(v)
	}
	return out, nil
}

// Reduce is the best-effort form of Process: on any failure it logs and
// returns the original input unchanged.
func (r *Reducer) Reduce(samples []float32) []float32 {
	out, err := r.Process(samples)
	if err != nil {
		r.logger.Warn("noise reduction failed, using original audio", "error", err, "samples", len(samples))
		r.opts.Metrics.DenoiseFailed()
		return samples
	}
	return out
}

// mask computes the smoothed soft gating mask, indexed [frame][bin].
func (r *Reducer) mask(st *stft) [][]float64 {
	frames := len(st.frames)
	bins := r.opts.NFFT/2 + 1

	mag := make([][]float64, frames)
	for t, frame := range st.frames {
		mag[t] = make([]float64, bins)
		for k, c := range frame {
			mag[t][k] = cmplx.Abs(c)
		}
	}

	smooth := r.timeSmoothed(mag)

	const eps = 1e-12
	mask := make([][]float64, frames)
	for t := range mag {
		mask[t] = make([]float64, bins)
		for k := range mag[t] {
			above := (mag[t][k] - smooth[t][k]) / (smooth[t][k] + eps)
			mask[t][k] = sigmoid(above-r.opts.Threshold, r.opts.SigmoidSlope)
		}
	}

	mask = convolveBins(mask, r.freqTaps)
	return convolveFrames(mask, r.timeTaps)
}

// timeSmoothed runs a zero-phase one-pole low-pass over each bin's
// magnitude trajectory.
func (r *Reducer) timeSmoothed(mag [][]float64) [][]float64 {
	tFrames := r.opts.TimeConstant.Seconds() * float64(r.opts.SampleRate) / float64(r.opts.Hop)
	b := (math.Sqrt(1+4*tFrames*tFrames) - 1) / (2 * tFrames * tFrames)

	frames := len(mag)
	out := make([][]float64, frames)
	for t := range out {
		out[t] = make([]float64, len(mag[t]))
	}

	for k := range mag[0] {
		// Forward pass, starting in steady state on the first value.
		y := mag[0][k]
		for t := 0; t < frames; t++ {
			y = b*mag[t][k] + (1-b)*y
			out[t][k] = y
		}
		// Backward pass.
		y = out[frames-1][k]
		for t := frames - 1; t >= 0; t-- {
			y = b*out[t][k] + (1-b)*y
			out[t][k] = y
		}
	}
	return out
}

func sigmoid(x, slope float64) float64 {
	return 1 / (1 + math.Exp(-x*slope))
}

// triangle returns a normalized triangular kernel of length 2n+1.
func triangle(n int) []float64 {
	if n < 0 {
		n = 0
	}
	taps := make([]float64, 2*n+1)
	var sum float64
	for i := range taps {
		d := i - n
		if d < 0 {
			d = -d
		}
		taps[i] = float64(n+1-d) / float64(n+1)
		sum += taps[i]
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// convolveBins smooths each frame across frequency, zero-padded at the edges.
func convolveBins(m [][]float64, taps []float64) [][]float64 {
	half := len(taps) / 2
	out := make([][]float64, len(m))
	for t, row := range m {
		out[t] = make([]float64, len(row))
		for k := range row {
			var acc float64
			for j, w := range taps {
				idx := k + j - half
				if idx >= 0 && idx < len(row) {
					acc += w * row[idx]
				}
			}
			out[t][k] = acc
		}
	}
	return out
}

// convolveFrames smooths each bin across time, zero-padded at the edges.
func convolveFrames(m [][]float64, taps []float64) [][]float64 {
	half := len(taps) / 2
	out := make([][]float64, len(m))
	for t := range m {
		out[t] = make([]float64, len(m[t]))
		for k := range m[t] {
			var acc float64
			for j, w := range taps {
				idx := t + j - half
				if idx >= 0 && idx < len(m) {
					acc += w * m[idx][k]
				}
			}
			out[t][k] = acc
		}
	}
	return out
}
