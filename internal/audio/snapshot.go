// SPDX-License-Identifier: MIT
package audio

import (
	"sync"

	"dsp/internal/config"
)

// Snapshot is a point-in-time bundle of one processed block, handed to
// polling consumers. Input holds the block as read from the capture
// channel, Filtered the block after the chain (identical to Input when
// bypassed or the chain is empty), SpectrumDB the analyzer output for
// the filtered block, and FrequencyHz the matching bin axis.
type Snapshot struct {
	Input       []float64
	Filtered    []float64
	SpectrumDB  []float64
	FrequencyHz []float64
	SampleRate  float64
}

// snapshotSlot is the single-value mailbox between the processing
// goroutine and snapshot consumers. The publisher only ever TryLocks:
// if a consumer is mid-take the block's snapshot is dropped, keeping
// the processing loop free of unbounded waits. Consumers take with a
// plain lock; a take clears the slot so each snapshot is delivered at
// most once (latest-wins, not a queue).
type snapshotSlot struct {
	mu    sync.Mutex
	valid bool
	snap  Snapshot
}

func newSnapshotSlot() *snapshotSlot {
	return &snapshotSlot{
		snap: Snapshot{
			Input:       make([]float64, 0, config.MaxWaveformSamples),
			Filtered:    make([]float64, 0, config.MaxWaveformSamples),
			SpectrumDB:  make([]float64, 0, config.MaxSpectrumBins),
			FrequencyHz: make([]float64, 0, config.MaxSpectrumBins),
		},
	}
}

// publish copies the block's buffers into the slot, overwriting any
// unconsumed snapshot. Returns false without blocking when a consumer
// holds the slot. Inputs within the preallocated bounds copy without
// allocating.
func (s *snapshotSlot) publish(input, filtered, spectrumDB, freqHz []float64, sampleRate float64) bool {
	if !s.mu.TryLock() {
		return false
	}
	s.snap.Input = append(s.snap.Input[:0], input...)
	s.snap.Filtered = append(s.snap.Filtered[:0], filtered...)
	s.snap.SpectrumDB = append(s.snap.SpectrumDB[:0], spectrumDB...)
	s.snap.FrequencyHz = append(s.snap.FrequencyHz[:0], freqHz...)
	s.snap.SampleRate = sampleRate
	s.valid = true
	s.mu.Unlock()
	return true
}

// take returns a copy of the current snapshot and clears the slot, or
// nil when no new block has completed since the last take. The copy is
// detached from the slot's buffers, so the caller may hold it
// indefinitely.
func (s *snapshotSlot) take() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.valid {
		return nil
	}
	s.valid = false

	out := &Snapshot{
		Input:       make([]float64, len(s.snap.Input)),
		Filtered:    make([]float64, len(s.snap.Filtered)),
		SpectrumDB:  make([]float64, len(s.snap.SpectrumDB)),
		FrequencyHz: make([]float64, len(s.snap.FrequencyHz)),
		SampleRate:  s.snap.SampleRate,
	}
	copy(out.Input, s.snap.Input)
	copy(out.Filtered, s.snap.Filtered)
	copy(out.SpectrumDB, s.snap.SpectrumDB)
	copy(out.FrequencyHz, s.snap.FrequencyHz)
	return out
}
