// SPDX-License-Identifier: MIT
package filter

// TimeDomain is a direct-convolution FIR filter over a circular delay
// line. Every processing call is allocation-free, so it is safe on the
// real-time path. Cost is O(M) per sample; the processing chain uses it
// for filters up to 128 taps and switches to OverlapAdd beyond that.
//
// Not safe for concurrent use; the chain serializes access.
type TimeDomain struct {
	coeffs []float64
	delay  []float64
	cursor int
	length int
}

// NewTimeDomain creates a filter from the given coefficients. The
// coefficients are copied; the delay line starts zeroed.
func NewTimeDomain(coeffs []float64) *TimeDomain {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)

	return &TimeDomain{
		coeffs: c,
		delay:  make([]float64, len(c)),
		length: len(c),
	}
}

// ProcessSample filters one sample: the input is written at the cursor,
// y = Σ h[k]·delay[(cursor-k) mod M] is accumulated, and the cursor
// advances. The index arithmetic adds length before subtracting k so the
// modulo never sees a negative operand.
func (f *TimeDomain) ProcessSample(input float64) float64 {
	f.delay[f.cursor] = input

	output := 0.0
	for k, coeff := range f.coeffs {
		idx := (f.cursor + f.length - k) % f.length
		output += coeff * f.delay[idx]
	}

	f.cursor = (f.cursor + 1) % f.length

	return output
}

// ProcessBlock filters buf in place.
func (f *TimeDomain) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// ProcessBlockTo filters src into dst. Panics if dst is shorter than src.
func (f *TimeDomain) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i, x := range src {
		dst[i] = f.ProcessSample(x)
	}
}

// UpdateCoefficients swaps in a new coefficient set. When the length is
// unchanged the delay line (and therefore stream continuity) is
// preserved; a length change reallocates and clears it, which is an
// accepted audible discontinuity.
func (f *TimeDomain) UpdateCoefficients(coeffs []float64) {
	if len(coeffs) != f.length {
		f.delay = make([]float64, len(coeffs))
		f.cursor = 0
		f.length = len(coeffs)
	}

	f.coeffs = make([]float64, len(coeffs))
	copy(f.coeffs, coeffs)
}

// Reset zeroes the delay line. The cursor is left in place: the next
// output only depends on delay-line contents, so restarting the stream
// from any cursor position behaves identically.
func (f *TimeDomain) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
}

// Len returns the tap count.
func (f *TimeDomain) Len() int {
	return f.length
}

// Coefficients returns a copy of the current coefficients.
func (f *TimeDomain) Coefficients() []float64 {
	c := make([]float64, f.length)
	copy(c, f.coeffs)
	return c
}

// GroupDelay returns (M-1)/2 samples, exact for symmetric Type I taps.
func (f *TimeDomain) GroupDelay() float64 {
	return float64(f.length-1) / 2.0
}
