package denoise

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// stft holds a centred short-time Fourier transform of a real signal.
// frames[t][k] is bin k of the frame centred on sample t*hop.
type stft struct {
	nfft   int
	hop    int
	n      int // length of the original signal
	win    []float64
	frames [][]complex128
}

// periodicHann returns a periodic Hann window of length n.
func periodicHann(n int) []float64 {
	w := make([]float64, n+1)
	for i := range w {
		w[i] = 1
	}
	return window.Hann(w)[:n]
}

// forward computes the STFT of x, zero-padding nfft/2 samples on both sides.
func forward(x []float64, nfft, hop int) *stft {
	half := nfft / 2
	padded := make([]float64, len(x)+nfft)
	copy(padded[half:], x)

	s := &stft{
		nfft: nfft,
		hop:  hop,
		n:    len(x),
		win:  periodicHann(nfft),
	}

	fft := fourier.NewFFT(nfft)
	seg := make([]float64, nfft)
	count := 1 + (len(padded)-nfft)/hop
	s.frames = make([][]complex128, count)
	for t := 0; t < count; t++ {
		off := t * hop
		for i := range seg {
			seg[i] = padded[off+i] * s.win[i]
		}
		s.frames[t] = fft.Coefficients(nil, seg)
	}
	return s
}

// inverse reconstructs the signal by weighted overlap-add, normalized by the
// squared window sum, and trims the centring pad.
func (s *stft) inverse() []float64 {
	half := s.nfft / 2
	total := s.n + s.nfft
	out := make([]float64, total)
	norm := make([]float64, total)

	fft := fourier.NewFFT(s.nfft)
	seg := make([]float64, s.nfft)
	scale := 1 / float64(s.nfft)
	for t, frame := range s.frames {
		fft.Sequence(seg, frame)
		off := t * s.hop
		for i, v := range seg {
			if off+i >= total {
				break
			}
			out[off+i] += v * scale * s.win[i]
			norm[off+i] += s.win[i] * s.win[i]
		}
	}

	y := make([]float64, s.n)
	for i := range y {
		j := i + half
		if norm[j] > 1e-10 {
			y[i] = out[j] / norm[j]
		}
	}
	return y
}
