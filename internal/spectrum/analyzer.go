// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math"

	"dsp/internal/filter"
	"dsp/pkg/bitint"
)

// Config holds the analyzer settings. FFTSize must be a power of two;
// SampleRate is only used to label the frequency axis.
type Config struct {
	FFTSize         int
	Window          filter.WindowType
	SampleRate      float64
	ApplyCorrection bool
}

// DefaultConfig returns the analyzer settings used by the processor when
// none are supplied: 4096-point Hamming analysis at 48 kHz with amplitude
// correction on.
func DefaultConfig() Config {
	return Config{
		FFTSize:         4096,
		Window:          filter.Hamming,
		SampleRate:      48000.0,
		ApplyCorrection: true,
	}
}

func validateConfig(cfg Config) error {
	if !bitint.IsPowerOfTwo(cfg.FFTSize) {
		return fmt.Errorf("%w: got %d", ErrFFTSize, cfg.FFTSize)
	}
	if cfg.SampleRate <= 0 || math.IsNaN(cfg.SampleRate) {
		return fmt.Errorf("%w: got %f", ErrSampleRate, cfg.SampleRate)
	}
	return nil
}

// Analyzer windows a signal block, transforms it, and derives magnitude
// and power spectra. All steady-state work runs in pre-allocated buffers;
// the window for the configured FFT size is cached at construction, and
// the window for the most recent shorter block length is cached on first
// use, so repeated analysis of same-sized blocks does not allocate.
//
// Returned slices alias internal workspace and stay valid until the next
// Analyze* call. Not safe for concurrent use; the processor serializes
// access.
type Analyzer struct {
	cfg    Config
	engine *Engine

	window        []float64 // coefficients at cfg.FFTSize
	altWindow     []float64 // coefficients at the last non-FFTSize block length
	ampCorrection float64
	powCorrection float64

	windowed  []float64
	magnitude []float64
	db        []float64
}

// NewAnalyzer creates an analyzer for the given settings.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	a := &Analyzer{}
	if err := a.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateConfig applies new settings. The FFT engine and workspace are
// rebuilt only when the transform size changes; window and correction
// caches always refresh. On error the analyzer is left unchanged.
func (a *Analyzer) UpdateConfig(cfg Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	if cfg.FFTSize != a.cfg.FFTSize {
		engine, err := NewEngine(cfg.FFTSize)
		if err != nil {
			return err
		}
		a.engine = engine
		a.windowed = make([]float64, cfg.FFTSize)
		a.magnitude = make([]float64, engine.NumBins())
		a.db = make([]float64, engine.NumBins())
	}

	a.cfg = cfg
	a.window = filter.GenerateWindow(cfg.Window, cfg.FFTSize)
	a.ampCorrection = filter.AmplitudeCorrectionFactor(cfg.Window, cfg.FFTSize)
	a.powCorrection = filter.PowerCorrectionFactor(cfg.Window, cfg.FFTSize)
	a.altWindow = nil

	return nil
}

// Config returns the current settings.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// NumBins returns the number of spectrum bins.
func (a *Analyzer) NumBins() int {
	return a.engine.NumBins()
}

// Analyze returns the magnitude spectrum of signal. Blocks shorter than
// the FFT size are windowed at their own length and zero-padded; longer
// blocks are truncated. Amplitude correction is applied when configured.
func (a *Analyzer) Analyze(signal []float64) []float64 {
	spec := a.transform(signal)
	MagnitudesInto(a.magnitude, spec)
	if a.cfg.ApplyCorrection {
		for i := range a.magnitude {
			a.magnitude[i] *= a.ampCorrection
		}
	}
	return a.magnitude
}

// AnalyzeDB returns the magnitude spectrum as 20·log10(mag/reference),
// floored so silence reads -200 dB below the reference. A reference of
// 1.0 gives dB full scale; non-positive references fall back to 1.0.
func (a *Analyzer) AnalyzeDB(signal []float64, reference float64) []float64 {
	if reference <= 0 || math.IsNaN(reference) {
		reference = 1.0
	}
	mags := a.Analyze(signal)
	for i, m := range mags {
		a.db[i] = 20.0 * math.Log10(math.Max(m, minMagnitude)/reference)
	}
	return a.db
}

// AnalyzePower returns the power spectrum of signal, with power
// correction applied when configured.
func (a *Analyzer) AnalyzePower(signal []float64) []float64 {
	spec := a.transform(signal)
	PowerInto(a.magnitude, spec)
	if a.cfg.ApplyCorrection {
		for i := range a.magnitude {
			a.magnitude[i] *= a.powCorrection
		}
	}
	return a.magnitude
}

// AnalyzePowerDB returns the power spectrum in dB, floored at -200 dB.
func (a *Analyzer) AnalyzePowerDB(signal []float64) []float64 {
	power := a.AnalyzePower(signal)
	for i, p := range power {
		a.db[i] = 10.0 * math.Log10(math.Max(p, minPower))
	}
	return a.db
}

// FrequencyBins returns the center frequency of every bin on a 0..1
// scale where 1 is Nyquist. Allocates; intended for axis setup, not the
// processing path.
func (a *Analyzer) FrequencyBins() []float64 {
	bins := make([]float64, a.engine.NumBins())
	for i := range bins {
		bins[i] = a.engine.BinFrequencyNormalized(i)
	}
	return bins
}

// FrequencyBinsHz returns the center frequency of every bin in Hz.
func (a *Analyzer) FrequencyBinsHz() []float64 {
	bins := make([]float64, a.engine.NumBins())
	for i := range bins {
		bins[i] = a.engine.BinFrequencyHz(i, a.cfg.SampleRate)
	}
	return bins
}

// transform windows signal into the padded workspace and returns its half
// spectrum.
func (a *Analyzer) transform(signal []float64) []complex128 {
	n := len(signal)
	if n > a.cfg.FFTSize {
		n = a.cfg.FFTSize
	}

	w := a.windowFor(n)
	for i := 0; i < n; i++ {
		a.windowed[i] = signal[i] * w[i]
	}
	for i := n; i < a.cfg.FFTSize; i++ {
		a.windowed[i] = 0
	}

	return a.engine.Transform(a.windowed)
}

// windowFor returns window coefficients of length n, regenerating the
// alternate cache only when the block length actually changes.
func (a *Analyzer) windowFor(n int) []float64 {
	if n == a.cfg.FFTSize {
		return a.window
	}
	if n != len(a.altWindow) {
		a.altWindow = filter.GenerateWindow(a.cfg.Window, n)
	}
	return a.altWindow
}
