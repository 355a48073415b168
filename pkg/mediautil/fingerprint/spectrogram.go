// Package fingerprint turns mono PCM samples into landmark hashes and votes
// query hashes against an index.
package fingerprint

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Params controls the short-time Fourier transform.
type Params struct {
	WindowSize int
	HopSize    int
}

var DefaultParams = Params{WindowSize: 1024, HopSize: 256}

func (p Params) withDefaults() Params {
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultParams.WindowSize
	}
	if p.HopSize <= 0 {
		p.HopSize = DefaultParams.HopSize
	}
	return p
}

// Hamming returns an n-point Hamming window.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// Spectrogram returns one magnitude spectrum (WindowSize/2 bins) per hop.
func Spectrogram(samples []float64, p Params) ([][]float64, error) {
	p = p.withDefaults()
	if len(samples) < p.WindowSize {
		return nil, errors.New("audio too short for window size")
	}

	window := Hamming(p.WindowSize)
	half := p.WindowSize / 2
	frames := (len(samples)-p.WindowSize)/p.HopSize + 1
	out := make([][]float64, 0, frames)

	frame := make([]float64, p.WindowSize)
	for start := 0; start+p.WindowSize <= len(samples); start += p.HopSize {
		for i := range frame {
			frame[i] = samples[start+i] * window[i]
		}
		spectrum := fft.FFTReal(frame)

		mag := make([]float64, half)
		for i := range mag {
			mag[i] = cmplx.Abs(spectrum[i])
		}
		out = append(out, mag)
	}
	return out, nil
}
