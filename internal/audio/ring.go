// SPDX-License-Identifier: MIT
package audio

import "sync/atomic"

// SampleChannel is a fixed-capacity single-producer/single-consumer
// sample queue. Cursors only ever increase; the occupied count is their
// difference, so it can never exceed the capacity and no flag is needed
// to tell full from empty. Writes and reads never block: a full channel
// truncates the write, an empty one returns zero.
//
// Safe for exactly one producer and one consumer operating concurrently.
// Neither side allocates or takes a lock, so both ends can sit inside
// realtime audio callbacks.
type SampleChannel struct {
	buf      []float64
	capacity uint64

	write atomic.Uint64
	read  atomic.Uint64
}

// NewSampleChannel creates a channel holding up to capacity samples.
// Panics if capacity is not positive; sizing is a programmer decision,
// not a runtime condition.
func NewSampleChannel(capacity int) *SampleChannel {
	if capacity <= 0 {
		panic("audio: sample channel capacity must be positive")
	}
	return &SampleChannel{
		buf:      make([]float64, capacity),
		capacity: uint64(capacity),
	}
}

// Write copies up to len(samples) into the channel and returns how many
// were accepted. Excess samples are silently dropped; the caller decides
// whether dropped samples matter. Producer side only.
func (c *SampleChannel) Write(samples []float64) int {
	w := c.write.Load()
	r := c.read.Load()

	free := int(c.capacity - (w - r))
	n := len(samples)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	idx := int(w % c.capacity)
	first := n
	if max := int(c.capacity) - idx; first > max {
		first = max
	}
	copy(c.buf[idx:idx+first], samples[:first])
	copy(c.buf[:n-first], samples[first:n])

	c.write.Store(w + uint64(n))
	return n
}

// Read copies up to len(buffer) samples out of the channel and returns
// how many were delivered; zero means empty. Consumer side only.
func (c *SampleChannel) Read(buffer []float64) int {
	w := c.write.Load()
	r := c.read.Load()

	n := int(w - r)
	if n > len(buffer) {
		n = len(buffer)
	}
	if n == 0 {
		return 0
	}

	idx := int(r % c.capacity)
	first := n
	if max := int(c.capacity) - idx; first > max {
		first = max
	}
	copy(buffer[:first], c.buf[idx:idx+first])
	copy(buffer[first:n], c.buf[:n-first])

	c.read.Store(r + uint64(n))
	return n
}

// Available returns the number of samples currently queued. Advisory
// when called while the other side is active.
func (c *SampleChannel) Available() int {
	return int(c.write.Load() - c.read.Load())
}

// FreeSpace returns how many samples a Write could currently accept.
func (c *SampleChannel) FreeSpace() int {
	return int(c.capacity) - c.Available()
}

// Capacity returns the fixed channel capacity.
func (c *SampleChannel) Capacity() int {
	return int(c.capacity)
}
