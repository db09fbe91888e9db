// SPDX-License-Identifier: MIT
package audio

import (
	"runtime"
	"testing"
)

func TestSampleChannelRoundTrip(t *testing.T) {
	ch := NewSampleChannel(16)

	in := []float64{1.0, 2.0, 3.0, 4.0}
	if n := ch.Write(in); n != 4 {
		t.Fatalf("Write() = %d, want 4", n)
	}
	if got := ch.Available(); got != 4 {
		t.Errorf("Available() = %d, want 4", got)
	}

	out := make([]float64, 8)
	if n := ch.Read(out); n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}
	for i, want := range in {
		if out[i] != want {
			t.Errorf("out[%d] = %g, want %g", i, out[i], want)
		}
	}
	if got := ch.Available(); got != 0 {
		t.Errorf("Available() after drain = %d, want 0", got)
	}
}

func TestSampleChannelEmptyRead(t *testing.T) {
	ch := NewSampleChannel(8)

	buf := make([]float64, 4)
	if n := ch.Read(buf); n != 0 {
		t.Errorf("Read() on empty channel = %d, want 0", n)
	}
}

func TestSampleChannelTruncatesWrites(t *testing.T) {
	ch := NewSampleChannel(4)

	in := []float64{1, 2, 3, 4, 5, 6}
	if n := ch.Write(in); n != 4 {
		t.Fatalf("Write() over capacity = %d, want 4", n)
	}
	if n := ch.Write(in); n != 0 {
		t.Errorf("Write() when full = %d, want 0", n)
	}
	if got := ch.FreeSpace(); got != 0 {
		t.Errorf("FreeSpace() when full = %d, want 0", got)
	}

	// Only the accepted prefix must come back.
	out := make([]float64, 8)
	if n := ch.Read(out); n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}
	for i := 0; i < 4; i++ {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %g, want %g", i, out[i], in[i])
		}
	}
}

func TestSampleChannelWraparound(t *testing.T) {
	ch := NewSampleChannel(8)

	// Advance the cursors so the next write straddles the end.
	pad := make([]float64, 6)
	ch.Write(pad)
	ch.Read(pad)

	in := []float64{10, 20, 30, 40, 50, 60}
	if n := ch.Write(in); n != 6 {
		t.Fatalf("Write() across boundary = %d, want 6", n)
	}

	out := make([]float64, 6)
	if n := ch.Read(out); n != 6 {
		t.Fatalf("Read() across boundary = %d, want 6", n)
	}
	for i, want := range in {
		if out[i] != want {
			t.Errorf("out[%d] = %g, want %g", i, out[i], want)
		}
	}
}

// Conservation invariant: reads never exceed writes, and the in-flight
// count never exceeds capacity, across mixed partial writes and reads.
func TestSampleChannelConservation(t *testing.T) {
	const capacity = 7
	ch := NewSampleChannel(capacity)

	writeSizes := []int{5, 3, 11, 1, 8, 2, 6, 4}
	readSizes := []int{2, 7, 1, 9, 3, 5, 2, 8}

	var next, expect float64
	totalWritten, totalRead := 0, 0

	for step := 0; step < 400; step++ {
		in := make([]float64, writeSizes[step%len(writeSizes)])
		for i := range in {
			in[i] = next
			next++
		}
		accepted := ch.Write(in)
		totalWritten += accepted
		// Rewind the counter for samples the channel refused.
		next -= float64(len(in) - accepted)

		out := make([]float64, readSizes[step%len(readSizes)])
		n := ch.Read(out)
		totalRead += n
		for i := 0; i < n; i++ {
			if out[i] != expect {
				t.Fatalf("step %d: read %g, want %g (reordered or corrupted)", step, out[i], expect)
			}
			expect++
		}

		if totalRead > totalWritten {
			t.Fatalf("step %d: read %d samples but only %d written", step, totalRead, totalWritten)
		}
		if inFlight := totalWritten - totalRead; inFlight < 0 || inFlight > capacity {
			t.Fatalf("step %d: %d samples in flight, capacity %d", step, inFlight, capacity)
		}
		if got := ch.Available(); got != totalWritten-totalRead {
			t.Fatalf("step %d: Available() = %d, want %d", step, got, totalWritten-totalRead)
		}
	}
}

func TestSampleChannelConcurrent(t *testing.T) {
	const total = 100000
	ch := NewSampleChannel(1024)

	go func() {
		chunk := make([]float64, 61)
		sent := 0
		for sent < total {
			n := len(chunk)
			if total-sent < n {
				n = total - sent
			}
			for i := 0; i < n; i++ {
				chunk[i] = float64(sent + i)
			}
			accepted := ch.Write(chunk[:n])
			sent += accepted
			if accepted == 0 {
				runtime.Gosched()
			}
		}
	}()

	buf := make([]float64, 37)
	received := 0
	for received < total {
		n := ch.Read(buf)
		if n == 0 {
			runtime.Gosched()
			continue
		}
		for i := 0; i < n; i++ {
			if buf[i] != float64(received+i) {
				t.Fatalf("sample %d: got %g, want %d", received+i, buf[i], received+i)
			}
		}
		received += n
	}
}

func TestSampleChannelHotPath(t *testing.T) {
	ch := NewSampleChannel(8192)
	block := make([]float64, 512)

	allocs := testing.AllocsPerRun(100, func() {
		ch.Write(block)
		ch.Read(block)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in write/read cycle, got %.1f", allocs)
	}
}

func TestSampleChannelBadCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewSampleChannel(%d) did not panic", capacity)
				}
			}()
			NewSampleChannel(capacity)
		}()
	}
}

func BenchmarkSampleChannel(b *testing.B) {
	ch := NewSampleChannel(96000)
	block := make([]float64, 2048)

	b.ReportAllocs()
	for b.Loop() {
		ch.Write(block)
		ch.Read(block)
	}
}
