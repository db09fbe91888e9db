// Package transport fans processed-audio snapshots out to external
// consumers. One Publisher polls the engine at a fixed rate and hands
// the same snapshot to every registered Transport; snapshots are
// detached copies, so transports may hold them as long as they like.
package transport

import "dsp/internal/audio"

// Transport delivers one snapshot to an external consumer.
// Implementations must tolerate being called from the publisher
// goroutine and must not block it indefinitely.
type Transport interface {
	Send(snap *audio.Snapshot) error
	Close() error
}

// Source yields the latest unseen snapshot, or nil when no block has
// completed since the previous poll. *audio.Processor satisfies it.
type Source interface {
	TakeSnapshot() *audio.Snapshot
}
