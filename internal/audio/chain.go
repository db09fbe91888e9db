// SPDX-License-Identifier: MIT
package audio

import "dsp/internal/filter"

// Chain slot positions. The gate always runs before the user filter.
const (
	chainSlotGate = 0
	chainSlotUser = 1
	chainSlots    = 2
)

// slotKind discriminates the variants a chain slot can hold.
type slotKind int

const (
	slotEmpty slotKind = iota
	slotGate
	slotTimeDomain
	slotOverlapAdd
)

// chainSlot is a tagged variant over the stream transformers rather than
// an open interface: the set of slot types is closed and the hot loop
// dispatches on the tag without an indirect call.
type chainSlot struct {
	kind slotKind
	gate *NoiseGate
	td   *filter.TimeDomain
	oa   *filter.OverlapAdd
}

func (s *chainSlot) isEmpty() bool {
	return s.kind == slotEmpty
}

func (s *chainSlot) clear() {
	*s = chainSlot{}
}

func (s *chainSlot) setGate(g *NoiseGate) {
	*s = chainSlot{kind: slotGate, gate: g}
}

func (s *chainSlot) setTimeDomain(f *filter.TimeDomain) {
	*s = chainSlot{kind: slotTimeDomain, td: f}
}

func (s *chainSlot) setOverlapAdd(f *filter.OverlapAdd) {
	*s = chainSlot{kind: slotOverlapAdd, oa: f}
}

// processBlock runs the slot's transformer over buf in place. Empty
// slots pass the block through untouched.
func (s *chainSlot) processBlock(buf []float64) {
	switch s.kind {
	case slotGate:
		s.gate.ProcessBlock(buf)
	case slotTimeDomain:
		s.td.ProcessBlock(buf)
	case slotOverlapAdd:
		s.oa.ProcessBlock(buf)
	}
}

// reset clears the slot's runtime state without touching configuration.
func (s *chainSlot) reset() {
	switch s.kind {
	case slotGate:
		s.gate.Reset()
	case slotTimeDomain:
		s.td.Reset()
	case slotOverlapAdd:
		s.oa.Reset()
	}
}

// filterChain is the fixed, ordered [gate, user filter] sequence applied
// to every processed block. Zero value is an empty chain.
type filterChain struct {
	slots [chainSlots]chainSlot
}

// process runs every occupied slot over buf in order.
func (c *filterChain) process(buf []float64) {
	for i := range c.slots {
		c.slots[i].processBlock(buf)
	}
}

// reset clears runtime state in every occupied slot.
func (c *filterChain) reset() {
	for i := range c.slots {
		c.slots[i].reset()
	}
}
