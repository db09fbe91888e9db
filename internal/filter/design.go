// SPDX-License-Identifier: MIT
package filter

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// FilterType selects the band shape of a designed FIR filter.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

// String returns the lowercase filter kind used in config and CLI flags.
func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	default:
		return "unknown"
	}
}

// ParseFilterType converts a name (case-insensitive) to a FilterType.
func ParseFilterType(name string) (FilterType, error) {
	switch strings.ToLower(name) {
	case "lowpass", "lp":
		return Lowpass, nil
	case "highpass", "hp":
		return Highpass, nil
	case "bandpass", "bp":
		return Bandpass, nil
	default:
		return Bandpass, fmt.Errorf("unknown filter type %q", name)
	}
}

// Design validation errors. All are reported before any coefficient
// allocation happens, so a failed design leaves the caller's state intact.
var (
	ErrTransitionWidth = errors.New("transition width must be positive")
	ErrEdgeRange       = errors.New("band edge must lie in (0, 1)")
	ErrEdgeOrdering    = errors.New("lower passband edge must be below upper edge")
)

// Spec is a validated filter design request. Band edges are normalized
// frequencies in units of π rad/sample (1 = Nyquist). Stopband edges are
// derived from the passband edges and the transition width; the actual
// cutoffs used for the sinc prototype sit at the transition-band midpoints.
// Construct through LowpassSpec/HighpassSpec/BandpassSpec so the
// invariants hold.
type Spec struct {
	// OmegaP1 is the lower passband edge (highpass, bandpass).
	OmegaP1 float64

	// OmegaP2 is the upper passband edge (lowpass, bandpass).
	OmegaP2 float64

	// OmegaS1 is the derived lower stopband edge: OmegaP1 - Δω/π.
	OmegaS1 float64

	// OmegaS2 is the derived upper stopband edge: OmegaP2 + Δω/π.
	OmegaS2 float64

	// DeltaOmega is the transition width in radians.
	DeltaOmega float64

	// Window shapes the truncated ideal response and fixes the tap count.
	Window WindowType
}

func validateEdge(omega float64) error {
	if omega <= 0.0 || omega >= 1.0 || math.IsNaN(omega) {
		return fmt.Errorf("%w: got %.4f", ErrEdgeRange, omega)
	}
	return nil
}

func validateTransition(deltaOmega float64) error {
	if deltaOmega <= 0.0 || math.IsNaN(deltaOmega) {
		return fmt.Errorf("%w: got %.6f rad", ErrTransitionWidth, deltaOmega)
	}
	return nil
}

// LowpassSpec builds a lowpass design request with passband edge omegaP.
// The stopband starts Δω/π above the passband edge.
func LowpassSpec(omegaP, deltaOmega float64, w WindowType) (Spec, error) {
	if err := validateTransition(deltaOmega); err != nil {
		return Spec{}, err
	}
	if err := validateEdge(omegaP); err != nil {
		return Spec{}, err
	}
	return Spec{
		OmegaP2:    omegaP,
		OmegaS2:    omegaP + deltaOmega/math.Pi,
		DeltaOmega: deltaOmega,
		Window:     w,
	}, nil
}

// HighpassSpec builds a highpass design request with passband edge omegaP.
// The stopband ends Δω/π below the passband edge.
func HighpassSpec(omegaP, deltaOmega float64, w WindowType) (Spec, error) {
	if err := validateTransition(deltaOmega); err != nil {
		return Spec{}, err
	}
	if err := validateEdge(omegaP); err != nil {
		return Spec{}, err
	}
	return Spec{
		OmegaP1:    omegaP,
		OmegaS1:    omegaP - deltaOmega/math.Pi,
		DeltaOmega: deltaOmega,
		Window:     w,
	}, nil
}

// BandpassSpec builds a bandpass design request with passband
// [omegaP1, omegaP2] and stopbands Δω/π outside each edge.
func BandpassSpec(omegaP1, omegaP2, deltaOmega float64, w WindowType) (Spec, error) {
	if err := validateTransition(deltaOmega); err != nil {
		return Spec{}, err
	}
	if err := validateEdge(omegaP1); err != nil {
		return Spec{}, err
	}
	if err := validateEdge(omegaP2); err != nil {
		return Spec{}, err
	}
	if omegaP1 >= omegaP2 {
		return Spec{}, fmt.Errorf("%w: ωp1=%.4f ωp2=%.4f", ErrEdgeOrdering, omegaP1, omegaP2)
	}
	return Spec{
		OmegaP1:    omegaP1,
		OmegaP2:    omegaP2,
		OmegaS1:    omegaP1 - deltaOmega/math.Pi,
		OmegaS2:    omegaP2 + deltaOmega/math.Pi,
		DeltaOmega: deltaOmega,
		Window:     w,
	}, nil
}

// CutoffFrequencies returns the transition-band midpoints (wc1, wc2) in
// units of π. Lowpass designs use wc2, highpass wc1, bandpass both.
func (s Spec) CutoffFrequencies() (float64, float64) {
	wc1 := (s.OmegaS1 + s.OmegaP1) / 2.0
	wc2 := (s.OmegaP2 + s.OmegaS2) / 2.0
	return wc1, wc2
}

// Length returns the tap count the design will produce.
func (s Spec) Length() int {
	return s.Window.FilterLength(s.DeltaOmega)
}

// designTaps evaluates ideal(Δn) at every tap position, applies the
// window, and returns the coefficients. The ideal function must handle
// only Δn != 0; center supplies the Δn -> 0 limit.
func designTaps(s Spec, center float64, ideal func(dn float64) float64) []float64 {
	m := s.Length()
	window := GenerateWindow(s.Window, m)

	mid := float64(m-1) / 2.0
	h := make([]float64, m)

	for n := range h {
		dn := float64(n) - mid
		var hIdeal float64
		if math.Abs(dn) < 1e-10 {
			hIdeal = center
		} else {
			hIdeal = ideal(dn)
		}
		h[n] = hIdeal * window[n]
	}

	return h
}

// DesignLowpass windows the ideal lowpass impulse response
// h[n] = sin(ωc·Δn)/(π·Δn) with the limit ωc/π at the center tap.
func DesignLowpass(s Spec) []float64 {
	_, wc2 := s.CutoffFrequencies()
	wc := wc2 * math.Pi

	return designTaps(s, wc/math.Pi, func(dn float64) float64 {
		return math.Sin(wc*dn) / (math.Pi * dn)
	})
}

// DesignHighpass windows the spectral inversion of the lowpass prototype:
// h[n] = -sin(ωc·Δn)/(π·Δn) with the limit 1-ωc/π at the center tap
// (impulse minus lowpass).
func DesignHighpass(s Spec) []float64 {
	wc1, _ := s.CutoffFrequencies()
	wc := wc1 * math.Pi

	return designTaps(s, 1.0-wc/math.Pi, func(dn float64) float64 {
		return -math.Sin(wc*dn) / (math.Pi * dn)
	})
}

// DesignBandpass windows the difference of two lowpass prototypes:
// h[n] = [sin(ωc2·Δn) - sin(ωc1·Δn)]/(π·Δn) with the limit (ωc2-ωc1)/π.
func DesignBandpass(s Spec) []float64 {
	wc1, wc2 := s.CutoffFrequencies()
	wc1Rad := wc1 * math.Pi
	wc2Rad := wc2 * math.Pi

	return designTaps(s, (wc2Rad-wc1Rad)/math.Pi, func(dn float64) float64 {
		return (math.Sin(wc2Rad*dn) - math.Sin(wc1Rad*dn)) / (math.Pi * dn)
	})
}

// FrequencyResponse evaluates H(e^jω) by direct DFT at the given
// normalized frequencies (units of π). Verification and plotting only,
// never the hot path.
func FrequencyResponse(h []float64, frequencies []float64) []complex128 {
	response := make([]complex128, len(frequencies))

	for i, omega := range frequencies {
		omegaRad := omega * math.Pi
		sum := complex(0, 0)
		for n, coeff := range h {
			phase := -omegaRad * float64(n)
			sum += complex(coeff, 0) * complex(math.Cos(phase), math.Sin(phase))
		}
		response[i] = sum
	}

	return response
}

// MagnitudeResponseDB returns 20·log10|H(e^jω)| at the given normalized
// frequencies.
func MagnitudeResponseDB(h []float64, frequencies []float64) []float64 {
	response := FrequencyResponse(h, frequencies)
	db := make([]float64, len(response))
	for i, c := range response {
		db[i] = 20.0 * math.Log10(cmplx.Abs(c))
	}
	return db
}
