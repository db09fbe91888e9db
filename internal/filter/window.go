// SPDX-License-Identifier: MIT

// Package filter implements FIR filter design by the windowing method and
// the two real-time filter runtimes used by the processing chain: direct
// convolution over a circular delay line for short filters, and FFT
// overlap-add convolution for long ones.
package filter

import (
	"fmt"
	"math"
	"strings"
)

// WindowType selects a window function for filter design and spectral
// analysis.
type WindowType int

const (
	// Rectangular applies no shaping. Mainlobe 4π/M, sidelobes ~-21 dB.
	Rectangular WindowType = iota

	// Hann: w[n] = 0.5 - 0.5*cos(2πn/(M-1)). Mainlobe 8π/M, ~-44 dB.
	Hann

	// Hamming: w[n] = 0.54 - 0.46*cos(2πn/(M-1)). Mainlobe 8π/M, ~-53 dB.
	Hamming

	// Blackman: w[n] = 0.42 - 0.5*cos(2πn/(M-1)) + 0.08*cos(4πn/(M-1)).
	// Mainlobe 12π/M, ~-74 dB.
	Blackman
)

// String returns the lowercase window name used in config and CLI flags.
func (w WindowType) String() string {
	switch w {
	case Rectangular:
		return "rectangular"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Blackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// ParseWindowType converts a name (case-insensitive) to a WindowType.
// Returns Hamming and an error if the name is unknown.
func ParseWindowType(name string) (WindowType, error) {
	switch strings.ToLower(name) {
	case "rectangular", "rect", "none":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	default:
		return Hamming, fmt.Errorf("unknown window type %q", name)
	}
}

// MainlobeWidthFactor returns the constant A in the transition-width
// relation Δω ≈ A·π/M (Oppenheim & Schafer, table 7.1).
func (w WindowType) MainlobeWidthFactor() float64 {
	switch w {
	case Blackman:
		return 12.0
	case Rectangular:
		return 4.0
	default: // Hann, Hamming
		return 8.0
	}
}

// StopbandAttenuationDB returns the approximate peak sidelobe attenuation
// the window achieves in a designed filter's stopband.
func (w WindowType) StopbandAttenuationDB() float64 {
	switch w {
	case Hann:
		return -44.0
	case Hamming:
		return -53.0
	case Blackman:
		return -74.0
	default:
		return -21.0
	}
}

// FilterLength returns the tap count M required to realize the given
// transition width (radians): M = ceil(A·π/Δω), rounded up to the next odd
// integer so the filter stays Type I (symmetric, linear phase).
func (w WindowType) FilterLength(deltaOmega float64) int {
	m := int(math.Ceil(w.MainlobeWidthFactor() * math.Pi / deltaOmega))
	if m%2 == 0 {
		m++
	}
	return m
}

// GenerateWindow returns the window coefficients w[n] for n = 0..length-1.
// All four shapes are symmetric with a denominator of M-1, so w[0] ==
// w[M-1] and odd-length windows peak at exactly 1.0 in the center.
func GenerateWindow(w WindowType, length int) []float64 {
	window := make([]float64, length)

	if length == 1 {
		window[0] = 1.0
		return window
	}

	m := float64(length)
	switch w {
	case Hann:
		for n := range window {
			angle := 2.0 * math.Pi * float64(n) / (m - 1.0)
			window[n] = 0.5 - 0.5*math.Cos(angle)
		}
	case Hamming:
		for n := range window {
			angle := 2.0 * math.Pi * float64(n) / (m - 1.0)
			window[n] = 0.54 - 0.46*math.Cos(angle)
		}
	case Blackman:
		for n := range window {
			angle1 := 2.0 * math.Pi * float64(n) / (m - 1.0)
			angle2 := 4.0 * math.Pi * float64(n) / (m - 1.0)
			window[n] = 0.42 - 0.5*math.Cos(angle1) + 0.08*math.Cos(angle2)
		}
	default:
		for n := range window {
			window[n] = 1.0
		}
	}

	return window
}

// AmplitudeCorrectionFactor returns length/Σw, the factor that compensates
// an FFT magnitude spectrum for the amplitude loss the window introduces.
// Rectangular windows return exactly 1.
func AmplitudeCorrectionFactor(w WindowType, length int) float64 {
	window := GenerateWindow(w, length)
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return float64(length) / sum
}

// PowerCorrectionFactor returns length/Σw², the equivalent factor for
// power spectral density estimates.
func PowerCorrectionFactor(w WindowType, length int) float64 {
	window := GenerateWindow(w, length)
	sumSq := 0.0
	for _, v := range window {
		sumSq += v * v
	}
	return float64(length) / sumSq
}
