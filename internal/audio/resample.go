package audio

import "math"

const (
	// resampleZeroCrossings is the number of sinc lobes on each side of the
	// interpolation point.
	resampleZeroCrossings = 16
	// resampleRolloff places the filter cutoff just below the lower Nyquist rate.
	resampleRolloff = 0.945
	// resampleBeta shapes the Kaiser window (about 80 dB stopband).
	resampleBeta = 8.6
)

// Resample converts mono samples from one rate to another using a
// Kaiser-windowed sinc interpolator band-limited to the lower of the two
// Nyquist frequencies. The output holds ceil(len(samples)*to/from) samples.
// Samples outside the input are treated as silence, so each call stands alone.
func Resample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}
	if len(samples) == 0 {
		return []float32{}
	}

	ratio := float64(to) / float64(from)
	n := int(math.Ceil(float64(len(samples)) * ratio))

	cutoff := resampleRolloff * math.Min(1, ratio)
	halfWidth := resampleZeroCrossings / cutoff // in input samples
	norm := besselI0(resampleBeta)
	last := len(samples) - 1

	out := make([]float32, n)
	for i := range out {
		t := float64(i) / ratio

		lo := int(math.Ceil(t - halfWidth))
		if lo < 0 {
			lo = 0
		}
		hi := int(math.Floor(t + halfWidth))
		if hi > last {
			hi = last
		}

		var acc float64
		for j := lo; j <= hi; j++ {
			d := t - float64(j)
			acc += float64(samples[j]) * cutoff * sinc(cutoff*d) * kaiser(d/halfWidth, norm)
		}
		out[i] = float32(acc)
	}
	return out
}

// ResampledLen returns the length Resample produces for n input samples.
func ResampledLen(n, from, to int) int {
	if from == to || from <= 0 || to <= 0 {
		return n
	}
	return int(math.Ceil(float64(n) * float64(to) / float64(from)))
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// kaiser evaluates the Kaiser window at x in [-1, 1]; norm is I0(beta).
func kaiser(x, norm float64) float64 {
	if x < -1 || x > 1 {
		return 0
	}
	return besselI0(resampleBeta*math.Sqrt(1-x*x)) / norm
}

// besselI0 is the zeroth-order modified Bessel function of the first kind.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= half / float64(k)
		t2 := term * term
		sum += t2
		if t2 < sum*1e-16 {
			break
		}
	}
	return sum
}
