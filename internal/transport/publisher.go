// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"sync"
	"time"

	applog "dsp/internal/log"
)

// DefaultPublishInterval is used when the caller provides a
// non-positive publish rate, roughly 60 Hz.
const DefaultPublishInterval = 16 * time.Millisecond

// Publisher periodically takes the engine's latest snapshot and fans it
// out to the registered transports. Because taking consumes the
// snapshot, the Publisher is the single polling point; transports hang
// off it rather than polling the engine themselves.
//
// It runs in its own goroutine managed by Start and Stop.
type Publisher struct {
	source     Source
	transports []Transport
	interval   time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop
}

// NewPublisher creates a publisher polling source at rateHz. A
// non-positive rate falls back to ~60 Hz. At least one transport is
// required; a publisher with nowhere to send is a configuration error.
func NewPublisher(rateHz int, source Source, transports ...Transport) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("publisher: snapshot source cannot be nil")
	}
	if len(transports) == 0 {
		return nil, fmt.Errorf("publisher: at least one transport is required")
	}

	interval := DefaultPublishInterval
	if rateHz > 0 {
		interval = time.Second / time.Duration(rateHz)
	} else {
		applog.Warnf("publisher: invalid rate %d Hz, defaulting to %s", rateHz, interval)
	}

	return &Publisher{
		source:     source,
		transports: transports,
		interval:   interval,
	}, nil
}

// Start launches the polling goroutine. Safe to call on a running
// publisher; subsequent calls are no-ops.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture locals so the goroutine never races Start/Stop on the
	// struct fields.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("publisher: started (interval %s, %d transports)", p.interval, len(p.transports))
		for {
			select {
			case <-ticker.C:
				p.publishTick()
			case <-doneChan:
				return
			}
		}
	}()
}

// publishTick takes the latest snapshot and hands it to every
// transport. Ticks with no new block are skipped; one failing transport
// does not keep the snapshot from the others.
func (p *Publisher) publishTick() {
	snap := p.source.TakeSnapshot()
	if snap == nil {
		return
	}
	for _, t := range p.transports {
		if err := t.Send(snap); err != nil {
			applog.Errorf("publisher: transport send failed: %v", err)
		}
	}
}

// Stop signals the polling goroutine and waits for it to exit. Safe to
// call multiple times and on a publisher that never started.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("publisher: stopped")
	return nil
}

// Close stops the publisher and closes every transport, returning the
// first transport error encountered.
func (p *Publisher) Close() error {
	_ = p.Stop()

	var firstErr error
	for _, t := range p.transports {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
