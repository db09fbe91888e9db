// SPDX-License-Identifier: MIT
package filter

import (
	"math"
	"testing"
)

func TestTimeDomainImpulseResponse(t *testing.T) {
	coeffs := []float64{0.2, -0.4, 0.6, -0.4, 0.2}
	f := NewTimeDomain(coeffs)

	// An impulse through the filter replays the coefficients.
	for k, want := range coeffs {
		var input float64
		if k == 0 {
			input = 1.0
		}
		if got := f.ProcessSample(input); math.Abs(got-want) > 1e-12 {
			t.Errorf("impulse response[%d] = %g, want %g", k, got, want)
		}
	}

	// And silence after the taps run out.
	for k := 0; k < 4; k++ {
		if got := f.ProcessSample(0.0); math.Abs(got) > 1e-12 {
			t.Errorf("tail sample %d = %g, want 0", k, got)
		}
	}
}

func TestTimeDomainMovingAverage(t *testing.T) {
	f := NewTimeDomain([]float64{0.5, 0.5})

	input := []float64{1.0, 2.0, 3.0, 4.0}
	expected := []float64{0.5, 1.5, 2.5, 3.5}

	f.ProcessBlock(input)

	for i, want := range expected {
		if math.Abs(input[i]-want) > 1e-12 {
			t.Errorf("output[%d] = %g, want %g", i, input[i], want)
		}
	}
}

func TestTimeDomainProcessBlockTo(t *testing.T) {
	inPlace := NewTimeDomain([]float64{0.25, 0.5, 0.25})
	separate := NewTimeDomain([]float64{0.25, 0.5, 0.25})

	src := []float64{1.0, -1.0, 2.0, -2.0, 3.0, -3.0}
	buf := make([]float64, len(src))
	copy(buf, src)
	dst := make([]float64, len(src))

	inPlace.ProcessBlock(buf)
	separate.ProcessBlockTo(dst, src)

	for i := range src {
		if buf[i] != dst[i] {
			t.Errorf("sample %d: in-place %g, separate %g", i, buf[i], dst[i])
		}
	}
}

func TestTimeDomainWraparound(t *testing.T) {
	// y[n] = x[n] + x[n-3]; five samples force the cursor past the end.
	f := NewTimeDomain([]float64{1.0, 0.0, 0.0, 1.0})

	input := []float64{1.0, 2.0, 3.0, 4.0, 5.0}
	expected := []float64{1.0, 2.0, 3.0, 5.0, 7.0}

	for i, x := range input {
		if got := f.ProcessSample(x); math.Abs(got-expected[i]) > 1e-12 {
			t.Errorf("output[%d] = %g, want %g", i, got, expected[i])
		}
	}
}

func TestTimeDomainReset(t *testing.T) {
	f := NewTimeDomain([]float64{0.5, 0.3, 0.2})

	f.ProcessSample(1.0)
	f.ProcessSample(2.0)
	f.ProcessSample(3.0)
	f.Reset()

	// After a reset the delay line is silent, so the first output is the
	// input scaled by the leading tap regardless of cursor position.
	if got := f.ProcessSample(1.0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("first output after reset = %g, want 0.5", got)
	}
}

func TestTimeDomainUpdateCoefficients(t *testing.T) {
	t.Run("same length preserves delay line", func(t *testing.T) {
		f := NewTimeDomain([]float64{1.0, 0.0})

		if got := f.ProcessSample(1.0); got != 1.0 {
			t.Fatalf("priming output = %g, want 1.0", got)
		}

		// Swap identity for a one-sample delay; the primed 1.0 must
		// still be in the line.
		f.UpdateCoefficients([]float64{0.0, 1.0})
		if got := f.ProcessSample(2.0); math.Abs(got-1.0) > 1e-12 {
			t.Errorf("output after same-length update = %g, want 1.0", got)
		}
	})

	t.Run("length change clears delay line", func(t *testing.T) {
		f := NewTimeDomain([]float64{1.0, 1.0})
		f.ProcessSample(5.0)

		f.UpdateCoefficients([]float64{1.0, 0.0, 0.0})
		if got := f.Len(); got != 3 {
			t.Fatalf("Len() after update = %d, want 3", got)
		}
		if got := f.ProcessSample(0.0); math.Abs(got) > 1e-12 {
			t.Errorf("output after length change = %g, want 0 (cleared line)", got)
		}
	})

	t.Run("coefficients are copied", func(t *testing.T) {
		coeffs := []float64{1.0, 2.0}
		f := NewTimeDomain(coeffs)
		coeffs[0] = 99.0

		if got := f.Coefficients()[0]; got != 1.0 {
			t.Errorf("coefficient[0] = %g, caller mutation leaked in", got)
		}
	})
}

func TestTimeDomainGroupDelay(t *testing.T) {
	tests := []struct {
		taps     int
		expected float64
	}{
		{161, 80.0},
		{241, 120.0},
		{2, 0.5},
	}

	for _, tt := range tests {
		f := NewTimeDomain(make([]float64, tt.taps))
		if got := f.GroupDelay(); got != tt.expected {
			t.Errorf("GroupDelay() with %d taps = %g, want %g", tt.taps, got, tt.expected)
		}
	}
}

func TestTimeDomainProcessAllocations(t *testing.T) {
	f := NewTimeDomain(make([]float64, 128))
	block := make([]float64, 512)

	allocs := testing.AllocsPerRun(100, func() {
		f.ProcessBlock(block)
	})
	if allocs != 0 {
		t.Errorf("ProcessBlock allocated %.1f times per run, want 0", allocs)
	}
}

func BenchmarkTimeDomainProcessBlock(b *testing.B) {
	benchmarks := []struct {
		name string
		taps int
	}{
		{"Taps16", 16},
		{"Taps64", 64},
		{"Taps128", 128},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			spec, err := LowpassSpec(0.5, testDeltaOmega, Hamming)
			if err != nil {
				b.Fatalf("LowpassSpec() error = %v", err)
			}
			coeffs := DesignLowpass(spec)[:bm.taps]
			f := NewTimeDomain(coeffs)
			block := make([]float64, 2048)

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				f.ProcessBlock(block)
			}
		})
	}
}
