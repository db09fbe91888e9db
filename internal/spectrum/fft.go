// SPDX-License-Identifier: MIT
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"dsp/pkg/bitint"
)

// Configuration validation errors.
var (
	ErrFFTSize    = errors.New("fft size must be a power of two")
	ErrSampleRate = errors.New("sample rate must be positive")
)

// Floors applied before taking logs so silence maps to a finite dB value
// (-200 dB) instead of -Inf.
const (
	minMagnitude = 1e-10
	minPower     = 1e-20
)

// Engine computes half spectra of real-valued blocks into a pre-allocated
// workspace. One forward transform per call, no allocation after
// construction.
//
// Not safe for concurrent use; the analyzer serializes access.
type Engine struct {
	fftSize  int
	fft      *fourier.FFT
	spectrum []complex128
}

// NewEngine creates an engine for the given transform size, which must be
// a power of two.
func NewEngine(fftSize int) (*Engine, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("%w: got %d", ErrFFTSize, fftSize)
	}

	return &Engine{
		fftSize:  fftSize,
		fft:      fourier.NewFFT(fftSize),
		spectrum: make([]complex128, fftSize/2+1),
	}, nil
}

// Size returns the transform size.
func (e *Engine) Size() int {
	return e.fftSize
}

// NumBins returns the number of spectrum bins, fftSize/2 + 1 for real
// input (DC through Nyquist).
func (e *Engine) NumBins() int {
	return e.fftSize/2 + 1
}

// Transform computes the half spectrum of input, which must be exactly
// Size() samples. The returned slice is the internal workspace: valid
// until the next call.
func (e *Engine) Transform(input []float64) []complex128 {
	if len(input) != e.fftSize {
		panic(fmt.Sprintf("spectrum: transform input length %d, engine size %d", len(input), e.fftSize))
	}
	return e.fft.Coefficients(e.spectrum, input)
}

// BinFrequencyNormalized returns the center frequency of a bin on a 0..1
// scale where 1 is Nyquist.
func (e *Engine) BinFrequencyNormalized(bin int) float64 {
	return 2.0 * e.fft.Freq(bin)
}

// BinFrequencyHz returns the center frequency of a bin in Hz for the
// given sample rate.
func (e *Engine) BinFrequencyHz(bin int, sampleRate float64) float64 {
	return e.fft.Freq(bin) * sampleRate
}

// MagnitudesInto writes |X[k]| per bin into dst. Panics if dst is shorter
// than the spectrum.
func MagnitudesInto(dst []float64, spectrum []complex128) {
	if len(spectrum) == 0 {
		return
	}
	_ = dst[len(spectrum)-1]
	for i, c := range spectrum {
		dst[i] = cmplx.Abs(c)
	}
}

// MagnitudesDBInto writes 20·log10|X[k]| per bin into dst, with the
// magnitude floored at 1e-10.
func MagnitudesDBInto(dst []float64, spectrum []complex128) {
	if len(spectrum) == 0 {
		return
	}
	_ = dst[len(spectrum)-1]
	for i, c := range spectrum {
		dst[i] = 20.0 * math.Log10(math.Max(cmplx.Abs(c), minMagnitude))
	}
}

// PowerInto writes |X[k]|² per bin into dst.
func PowerInto(dst []float64, spectrum []complex128) {
	if len(spectrum) == 0 {
		return
	}
	_ = dst[len(spectrum)-1]
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		dst[i] = re*re + im*im
	}
}

// PowerDBInto writes 10·log10|X[k]|² per bin into dst, with the power
// floored at 1e-20.
func PowerDBInto(dst []float64, spectrum []complex128) {
	if len(spectrum) == 0 {
		return
	}
	_ = dst[len(spectrum)-1]
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		dst[i] = 10.0 * math.Log10(math.Max(re*re+im*im, minPower))
	}
}
