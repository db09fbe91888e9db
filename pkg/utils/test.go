// Package utils holds shared test-signal helpers. The engine pipeline is
// float64 end to end, so generators emit normalized [-1, 1) amplitudes.
package utils

import "math"

// GenerateSineWave returns size samples of a pure sine at the given
// frequency and peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental plus two harmonics,
// peak amplitude just under 1.0.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = 0.9 * (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2)
	}
	return buffer
}

// GenerateImpulse returns a unit impulse: 1.0 at index 0, zero elsewhere.
func GenerateImpulse(size int) []float64 {
	buffer := make([]float64, size)
	if size > 0 {
		buffer[0] = 1.0
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
// Bounds are clamped; an empty slice returns 0.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
