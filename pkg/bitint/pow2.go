/*
Package bitint provides power-of-2 helpers for FFT and buffer sizing.

All operations are O(1), allocation-free and real-time safe.

Usage:

	// Size an FFT for overlap-add convolution
	fftSize := bitint.NextPowerOfTwo(blockSize + taps - 1)

	// Verify an FFT size is valid
	ok := bitint.IsPowerOfTwo(fftSize)
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Exact powers of 2
// are preserved: the size-1 before bits.Len is what keeps 8 -> 8 instead
// of 8 -> 16. Non-positive sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of 2
// have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
