// SPDX-License-Identifier: MIT
package filter

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"dsp/pkg/bitint"
)

// OverlapAdd is an FFT-based FIR filter using overlap-add convolution.
// The kernel spectrum is computed once at construction; each block then
// costs one forward transform, a pointwise multiply, and one inverse
// transform: O(N log N) against the direct filter's O(N·M). The chain
// uses it for filters longer than 128 taps.
//
// The FFT size is the next power of two >= blockSize + kernel length - 1,
// which keeps the circular convolution linear. A tail of kernel length - 1
// samples carries each block's trailing ring-out into the next call.
//
// Not safe for concurrent use; the chain serializes access.
type OverlapAdd struct {
	fft       *fourier.FFT
	kernelFFT []complex128
	fftSize   int
	blockSize int
	kernelLen int

	tail     []float64
	input    []float64
	spectrum []complex128
	output   []float64
}

// NewOverlapAdd creates an overlap-add filter for the given kernel and
// block size. Panics if the kernel is empty or blockSize is not positive;
// both are programmer errors, not runtime conditions.
func NewOverlapAdd(kernel []float64, blockSize int) *OverlapAdd {
	if len(kernel) == 0 {
		panic("filter: overlap-add kernel must not be empty")
	}
	if blockSize <= 0 {
		panic(fmt.Sprintf("filter: overlap-add block size must be positive, got %d", blockSize))
	}

	kernelLen := len(kernel)
	fftSize := bitint.NextPowerOfTwo(blockSize + kernelLen - 1)
	fft := fourier.NewFFT(fftSize)

	// Transform the zero-padded kernel once. The half spectrum is enough:
	// real inputs keep both spectra conjugate-symmetric, so the pointwise
	// product over fftSize/2+1 bins determines the full result.
	padded := make([]float64, fftSize)
	copy(padded, kernel)
	kernelFFT := fft.Coefficients(nil, padded)

	return &OverlapAdd{
		fft:       fft,
		kernelFFT: kernelFFT,
		fftSize:   fftSize,
		blockSize: blockSize,
		kernelLen: kernelLen,
		tail:      make([]float64, kernelLen-1),
		input:     make([]float64, fftSize),
		spectrum:  make([]complex128, fftSize/2+1),
		output:    make([]float64, fftSize),
	}
}

// ProcessBlock filters buf in place. Inputs longer than the configured
// block size are processed in consecutive chunks; the overlap tail keeps
// the stream continuous across chunk and call boundaries. Allocation-free.
func (f *OverlapAdd) ProcessBlock(buf []float64) {
	for start := 0; start < len(buf); start += f.blockSize {
		end := start + f.blockSize
		if end > len(buf) {
			end = len(buf)
		}
		f.processChunk(buf[start:end])
	}
}

// ProcessBlockTo filters src into dst. Panics if dst is shorter than src.
func (f *OverlapAdd) ProcessBlockTo(dst, src []float64) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	copy(dst[:len(src)], src)
	f.ProcessBlock(dst[:len(src)])
}

// processChunk convolves one chunk of at most blockSize samples.
func (f *OverlapAdd) processChunk(chunk []float64) {
	n := len(chunk)

	copy(f.input[:n], chunk)
	for i := n; i < f.fftSize; i++ {
		f.input[i] = 0
	}

	f.fft.Coefficients(f.spectrum, f.input)
	for i := range f.spectrum {
		f.spectrum[i] *= f.kernelFFT[i]
	}
	f.fft.Sequence(f.output, f.spectrum)

	// The round trip through Coefficients and Sequence scales by fftSize.
	scale := 1.0 / float64(f.fftSize)

	for i := 0; i < n; i++ {
		y := f.output[i] * scale
		if i < len(f.tail) {
			y += f.tail[i]
		}
		chunk[i] = y
	}

	// Save the ring-out past the chunk for the next call. Short final
	// chunks can push the tail window past the FFT size; those samples
	// are zero by construction.
	for i := range f.tail {
		idx := n + i
		if idx < f.fftSize {
			f.tail[i] = f.output[idx] * scale
		} else {
			f.tail[i] = 0
		}
	}
}

// Reset clears the overlap tail. The cached kernel spectrum is untouched.
func (f *OverlapAdd) Reset() {
	for i := range f.tail {
		f.tail[i] = 0
	}
}

// KernelLen returns the tap count of the convolved kernel.
func (f *OverlapAdd) KernelLen() int {
	return f.kernelLen
}

// BlockSize returns the configured chunk size.
func (f *OverlapAdd) BlockSize() int {
	return f.blockSize
}

// FFTSize returns the transform size in use.
func (f *OverlapAdd) FFTSize() int {
	return f.fftSize
}
