// SPDX-License-Identifier: MIT
package audio

import "math"

const (
	// gateHysteresisDB keeps the gate from chattering around the
	// threshold: once open it only closes this far below it.
	gateHysteresisDB = 3.0

	// gateLevelTau is the time constant of the mean-square level
	// estimator, fixed at 50 ms.
	gateLevelTau = 0.050

	// gateLevelEpsilon keeps the log finite on silence.
	gateLevelEpsilon = 1e-10
)

// Default gate parameters installed by ConfigureNoiseGate when the
// caller has no preference.
const (
	DefaultGateThresholdDB = -40.0
	DefaultGateAttackMs    = 10.0
	DefaultGateReleaseMs   = 100.0
)

// NoiseGate mutes a stream when its smoothed level falls below a
// threshold. Level tracking is a single-pole mean-square follower; the
// open/closed decision is hysteretic; the applied gain ramps toward the
// open/closed target with separate attack and release time constants so
// transitions do not click.
//
// Per-sample state machine, no allocation. Not safe for concurrent use;
// the chain serializes access.
type NoiseGate struct {
	sampleRate  float64
	thresholdDB float64

	levelCoeff   float64 // mean-square smoothing, from gateLevelTau
	attackCoeff  float64
	releaseCoeff float64

	meanSquare float64
	open       bool
	envelope   float64
}

// NewNoiseGate creates a gate for streams at the given sample rate. The
// gate starts closed with a zero envelope.
func NewNoiseGate(sampleRate, thresholdDB, attackMs, releaseMs float64) *NoiseGate {
	g := &NoiseGate{
		sampleRate:  sampleRate,
		thresholdDB: thresholdDB,
		levelCoeff:  smoothingCoeff(gateLevelTau*1000.0, sampleRate),
	}
	g.SetAttackTime(attackMs)
	g.SetReleaseTime(releaseMs)
	return g
}

// smoothingCoeff converts a time constant in milliseconds to a one-pole
// smoothing factor: exp(-1/(τ·fs)). Non-positive times smooth instantly.
func smoothingCoeff(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 0.0
	}
	return math.Exp(-1.0 / (ms / 1000.0 * sampleRate))
}

// ProcessSample gates one sample and returns it scaled by the envelope.
func (g *NoiseGate) ProcessSample(x float64) float64 {
	g.meanSquare = g.levelCoeff*g.meanSquare + (1.0-g.levelCoeff)*x*x
	levelDB := 20.0 * math.Log10(math.Sqrt(g.meanSquare)+gateLevelEpsilon)

	if g.open {
		if levelDB < g.thresholdDB-gateHysteresisDB {
			g.open = false
		}
	} else if levelDB >= g.thresholdDB {
		g.open = true
	}

	target := 0.0
	coeff := g.releaseCoeff
	if g.open {
		target = 1.0
	}
	if target > g.envelope {
		coeff = g.attackCoeff
	}
	g.envelope = coeff*g.envelope + (1.0-coeff)*target

	return x * g.envelope
}

// ProcessBlock gates buf in place.
func (g *NoiseGate) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = g.ProcessSample(x)
	}
}

// SetThreshold adjusts the gate threshold in dB full scale. Accumulated
// level and envelope state are kept so the gate reacts from where it is.
func (g *NoiseGate) SetThreshold(thresholdDB float64) {
	g.thresholdDB = thresholdDB
}

// SetAttackTime adjusts how fast the gate opens, in milliseconds.
func (g *NoiseGate) SetAttackTime(attackMs float64) {
	g.attackCoeff = smoothingCoeff(attackMs, g.sampleRate)
}

// SetReleaseTime adjusts how fast the gate closes, in milliseconds.
func (g *NoiseGate) SetReleaseTime(releaseMs float64) {
	g.releaseCoeff = smoothingCoeff(releaseMs, g.sampleRate)
}

// ThresholdDB returns the current threshold.
func (g *NoiseGate) ThresholdDB() float64 {
	return g.thresholdDB
}

// Envelope returns the gain currently applied, 0..1.
func (g *NoiseGate) Envelope() float64 {
	return g.envelope
}

// IsOpen reports whether the gate is passing signal.
func (g *NoiseGate) IsOpen() bool {
	return g.open
}

// LevelDB returns the smoothed input level in dB full scale.
func (g *NoiseGate) LevelDB() float64 {
	return 20.0 * math.Log10(math.Sqrt(g.meanSquare)+gateLevelEpsilon)
}

// Reset zeroes the level estimate and envelope and forces the gate
// closed. Thresholds and time constants are kept.
func (g *NoiseGate) Reset() {
	g.meanSquare = 0.0
	g.envelope = 0.0
	g.open = false
}
