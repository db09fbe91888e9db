// SPDX-License-Identifier: MIT
/*
Package audio implements a real-time audio processing engine with:
- Lock-free SPSC sample transport between audio callbacks and the processing goroutine
- A noise gate and designed FIR filters in a fixed two-slot chain
- Windowed-FFT spectrum analysis published as take-once snapshots
- Optional monitoring playback and WAV recording of the processed stream

Thread Safety:
- Control flags are independent atomics read once per loop iteration
- Chain, snapshot slot, and output handle each have a minimal-scope mutex
- Hot-path lock acquisition is TryLock only; contention drops the block
  for that concern rather than stalling the processing loop
*/
package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dsp/internal/config"
	"dsp/internal/filter"
	"dsp/internal/log"
	"dsp/internal/spectrum"
)

// emptyReadSleep bounds the processing goroutine's idle spin when the
// capture channel is empty. It is the engine's only suspension and sets
// the worst-case added latency.
const emptyReadSleep = 100 * time.Microsecond

// captureStream is the collaborator contract for the capture side. A
// failed Start releases the underlying stream. Dropped reports samples
// discarded because the channel was full.
type captureStream interface {
	Start() error
	Stop() error
	Close() error
	Name() string
	Dropped() uint64
}

// playbackStream is the collaborator contract for the monitoring side.
type playbackStream interface {
	Start() error
	Stop() error
	Close() error
}

var (
	_ captureStream  = (*InputStream)(nil)
	_ playbackStream = (*OutputStream)(nil)
)

// Processor owns the processing pipeline: the capture channel consumer,
// the [gate, user filter] chain, the spectrum analyzer, the snapshot
// slot, and the optional monitoring and recording outputs.
type Processor struct {
	// Core configuration and state.
	cfg        *config.Config
	sampleRate float64

	// Capture side. openInput is swappable in tests.
	input     *SampleChannel
	capture   captureStream
	openInput func(ch *SampleChannel) (captureStream, error)

	// Monitoring playback side, lazily created.
	outputMu   sync.Mutex
	output     *SampleChannel
	playback   playbackStream
	openOutput func(ch *SampleChannel) (playbackStream, error)

	// Filter chain.
	chainMu sync.Mutex
	chain   filterChain

	// Spectrum analysis. freqHz caches the bin axis for the current
	// FFT configuration.
	analyzerMu sync.Mutex
	analyzer   *spectrum.Analyzer
	freqHz     []float64

	// Snapshot publication.
	slot *snapshotSlot

	// Recording.
	recMu     sync.Mutex
	rec       *recorder
	recording atomic.Bool

	// Control flags.
	running    atomic.Bool
	bypass     atomic.Bool
	monitoring atomic.Bool

	// Lifecycle. lifecycleMu serializes Start/Stop; done joins the
	// processing goroutine.
	lifecycleMu sync.Mutex
	done        chan struct{}

	// Hot-path scratch, owned by the processing goroutine.
	readBuf  []float64
	filtered []float64

	// Contention accounting, reported at Stop.
	chainSkips    atomic.Uint64
	snapshotDrops atomic.Uint64
}

// NewProcessor builds a stopped processor from the configuration. The
// noise gate is installed when enabled in the config; user filters are
// installed later through DesignFilter.
func NewProcessor(cfg *config.Config) (*Processor, error) {
	window, err := filter.ParseWindowType(cfg.Spectrum.Window)
	if err != nil {
		return nil, err
	}

	analyzer, err := spectrum.NewAnalyzer(spectrum.Config{
		FFTSize:         cfg.Spectrum.FFTSize,
		Window:          window,
		SampleRate:      cfg.Audio.SampleRate,
		ApplyCorrection: cfg.Spectrum.ApplyCorrection,
	})
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:        cfg,
		sampleRate: cfg.Audio.SampleRate,
		analyzer:   analyzer,
		freqHz:     analyzer.FrequencyBinsHz(),
		slot:       newSnapshotSlot(),
		readBuf:    make([]float64, config.BlockSize),
		filtered:   make([]float64, config.BlockSize),
	}
	p.openInput = func(ch *SampleChannel) (captureStream, error) {
		return OpenInputStream(cfg.Audio.InputDevice, cfg.Audio.SampleRate,
			cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency, ch)
	}
	p.openOutput = func(ch *SampleChannel) (playbackStream, error) {
		return OpenOutputStream(cfg.Audio.OutputDevice, cfg.Audio.SampleRate,
			cfg.Audio.FramesPerBuffer, cfg.Audio.LowLatency, ch)
	}
	p.bypass.Store(cfg.Audio.Bypass)

	if cfg.Gate.Enabled {
		p.chain.slots[chainSlotGate].setGate(NewNoiseGate(
			p.sampleRate, cfg.Gate.ThresholdDB, cfg.Gate.AttackMs, cfg.Gate.ReleaseMs))
	}

	return p, nil
}

// Start allocates the capture channel, opens and starts the capture
// stream, and spawns the processing goroutine. It returns the capture
// device's reported name. On any failure the processor stays stopped.
// Calling Start on a running processor is a no-op that returns the
// active device name.
func (p *Processor) Start() (string, error) {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running.Load() {
		return p.capture.Name(), nil
	}

	input := NewSampleChannel(config.RingCapacity)
	capture, err := p.openInput(input)
	if err != nil {
		return "", err
	}
	if err := capture.Start(); err != nil {
		return "", err
	}

	p.input = input
	p.capture = capture
	p.done = make(chan struct{})
	p.running.Store(true)
	go p.run()

	log.Infof("engine started on %q at %.0f Hz", capture.Name(), p.sampleRate)
	return capture.Name(), nil
}

// Stop clears the running flag, joins the processing goroutine, then
// stops and releases the capture stream. A block in flight always
// completes. Safe to call on a stopped processor.
func (p *Processor) Stop() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	<-p.done

	if err := p.capture.Stop(); err != nil {
		log.Warnf("stopping capture stream: %v", err)
	}
	if err := p.capture.Close(); err != nil {
		log.Warnf("closing capture stream: %v", err)
	}
	log.Infof("engine stopped (capture drops %d, chain skips %d, snapshot drops %d)",
		p.capture.Dropped(), p.chainSkips.Load(), p.snapshotDrops.Load())

	p.capture = nil
	p.input = nil
}

// Close stops the engine and releases monitoring and recording
// resources. Callers must invoke it; skipping Close leaks the
// processing goroutine and open streams.
func (p *Processor) Close() error {
	p.Stop()
	p.DisableMonitoring()
	return p.StopRecording()
}

// run is the processing goroutine: pull a block, process, publish,
// until the running flag clears.
func (p *Processor) run() {
	defer close(p.done)
	for p.running.Load() {
		n := p.input.Read(p.readBuf)
		if n == 0 {
			time.Sleep(emptyReadSleep)
			continue
		}
		p.processBlock(p.readBuf[:n])
	}
}

// processBlock runs one block through chain, analyzer, snapshot slot,
// recorder, and monitor output. No allocation in the steady state.
func (p *Processor) processBlock(block []float64) {
	filtered := p.filtered[:len(block)]
	copy(filtered, block)

	if !p.bypass.Load() {
		if p.chainMu.TryLock() {
			p.chain.process(filtered)
			p.chainMu.Unlock()
		} else {
			// A control call holds the chain; the block passes
			// through unfiltered rather than waiting.
			p.chainSkips.Add(1)
		}
	}

	p.analyzerMu.Lock()
	db := p.analyzer.AnalyzeDB(filtered, 1.0)
	published := p.slot.publish(block, filtered, db, p.freqHz, p.sampleRate)
	p.analyzerMu.Unlock()
	if !published {
		p.snapshotDrops.Add(1)
	}

	if p.recording.Load() {
		p.feedRecorder(filtered)
	}

	if p.monitoring.Load() {
		if p.outputMu.TryLock() {
			if p.output != nil {
				p.output.Write(filtered)
			}
			p.outputMu.Unlock()
		}
	}
}

// DesignFilter designs a linear-phase FIR filter and installs it in the
// chain's user slot, replacing whatever was there. Band edges are
// normalized frequencies in units of π (1 = Nyquist): lowpass designs
// take their passband edge from omega2, highpass from omega1, bandpass
// from both. transitionWidth is in radians. Returns the tap count and
// group delay in samples; a failed design leaves the chain unchanged.
func (p *Processor) DesignFilter(omega1, omega2, transitionWidth float64, window filter.WindowType, kind filter.FilterType) (int, float64, error) {
	var (
		spec filter.Spec
		err  error
	)
	switch kind {
	case filter.Lowpass:
		spec, err = filter.LowpassSpec(omega2, transitionWidth, window)
	case filter.Highpass:
		spec, err = filter.HighpassSpec(omega1, transitionWidth, window)
	case filter.Bandpass:
		spec, err = filter.BandpassSpec(omega1, omega2, transitionWidth, window)
	default:
		return 0, 0, fmt.Errorf("unknown filter kind %d", kind)
	}
	if err != nil {
		return 0, 0, err
	}

	var taps []float64
	switch kind {
	case filter.Lowpass:
		taps = filter.DesignLowpass(spec)
	case filter.Highpass:
		taps = filter.DesignHighpass(spec)
	case filter.Bandpass:
		taps = filter.DesignBandpass(spec)
	}
	groupDelay := float64(len(taps)-1) / 2.0

	p.chainMu.Lock()
	slot := &p.chain.slots[chainSlotUser]
	if len(taps) <= config.TimeDomainMaxTaps {
		slot.setTimeDomain(filter.NewTimeDomain(taps))
	} else {
		slot.setOverlapAdd(filter.NewOverlapAdd(taps, config.BlockSize))
	}
	p.chainMu.Unlock()

	log.Infof("installed %s filter: %d taps, group delay %.1f samples",
		kind, len(taps), groupDelay)
	return len(taps), groupDelay, nil
}

// ClearFilter empties the chain's user slot.
func (p *Processor) ClearFilter() {
	p.chainMu.Lock()
	p.chain.slots[chainSlotUser].clear()
	p.chainMu.Unlock()
}

// ConfigureNoiseGate installs, reconfigures, or removes the gate in
// chain slot 0. Reconfiguring an installed gate mutates it in place so
// accumulated envelope state survives parameter changes.
func (p *Processor) ConfigureNoiseGate(enabled bool, thresholdDB, attackMs, releaseMs float64) {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()

	slot := &p.chain.slots[chainSlotGate]
	if !enabled {
		slot.clear()
		return
	}
	if slot.kind == slotGate {
		slot.gate.SetThreshold(thresholdDB)
		slot.gate.SetAttackTime(attackMs)
		slot.gate.SetReleaseTime(releaseMs)
		return
	}
	slot.setGate(NewNoiseGate(p.sampleRate, thresholdDB, attackMs, releaseMs))
}

// EnableMonitoring lazily creates the output channel and playback
// stream and starts feeding the processed stream to it. Re-enabling
// while already set up just resumes the feed.
func (p *Processor) EnableMonitoring() error {
	p.outputMu.Lock()
	defer p.outputMu.Unlock()

	if p.playback != nil {
		p.monitoring.Store(true)
		return nil
	}

	output := NewSampleChannel(config.RingCapacity)
	playback, err := p.openOutput(output)
	if err != nil {
		return err
	}
	if err := playback.Start(); err != nil {
		return err
	}

	p.output = output
	p.playback = playback
	p.monitoring.Store(true)
	log.Infof("monitoring enabled")
	return nil
}

// DisableMonitoring stops the feed and tears down the playback stream
// and output channel. Safe to call when monitoring was never enabled.
func (p *Processor) DisableMonitoring() {
	p.monitoring.Store(false)

	p.outputMu.Lock()
	defer p.outputMu.Unlock()

	if p.playback == nil {
		return
	}
	if err := p.playback.Stop(); err != nil {
		log.Warnf("stopping playback stream: %v", err)
	}
	if err := p.playback.Close(); err != nil {
		log.Warnf("closing playback stream: %v", err)
	}
	p.playback = nil
	p.output = nil
	log.Infof("monitoring disabled")
}

// UpdateFFTConfig reconfigures the analyzer and refreshes the cached
// frequency axis. The FFT plan is rebuilt only when the size changes.
func (p *Processor) UpdateFFTConfig(fftSize int, window filter.WindowType) error {
	if fftSize > config.MaxFFTSize {
		return fmt.Errorf("%w: %d exceeds maximum %d",
			spectrum.ErrFFTSize, fftSize, config.MaxFFTSize)
	}

	p.analyzerMu.Lock()
	defer p.analyzerMu.Unlock()

	cfg := p.analyzer.Config()
	cfg.FFTSize = fftSize
	cfg.Window = window
	if err := p.analyzer.UpdateConfig(cfg); err != nil {
		return err
	}
	p.freqHz = p.analyzer.FrequencyBinsHz()
	return nil
}

// TakeSnapshot returns the most recent snapshot and clears the slot, or
// nil when no block has completed since the last take.
func (p *Processor) TakeSnapshot() *Snapshot {
	return p.slot.take()
}

// SetBypass routes blocks around the filter chain. Analysis, snapshots,
// recording, and monitoring continue on the unfiltered signal.
func (p *Processor) SetBypass(bypass bool) {
	p.bypass.Store(bypass)
}

// StartRecording arms WAV capture of the processed stream.
func (p *Processor) StartRecording(path string) error {
	p.recMu.Lock()
	defer p.recMu.Unlock()

	if p.rec != nil {
		return fmt.Errorf("already recording")
	}
	rec, err := newRecorder(path, p.sampleRate)
	if err != nil {
		return err
	}
	p.rec = rec
	p.recording.Store(true)
	log.Infof("recording processed stream to %s", path)
	return nil
}

// StopRecording disarms the recorder and finalizes the file. Returns
// nil when no recording is active.
func (p *Processor) StopRecording() error {
	p.recMu.Lock()
	defer p.recMu.Unlock()

	if p.rec == nil {
		return nil
	}
	p.recording.Store(false)
	err := p.rec.close()
	p.rec = nil
	return err
}

// feedRecorder appends the filtered block to the armed recorder. After
// too many consecutive write failures the recorder disarms itself so a
// dead disk cannot wedge the recording path for the rest of the run.
func (p *Processor) feedRecorder(block []float64) {
	p.recMu.Lock()
	defer p.recMu.Unlock()

	if p.rec == nil {
		return
	}
	if err := p.rec.write(block); err != nil {
		p.rec.failures++
		log.Errorf("recording write failed (%d consecutive): %v", p.rec.failures, err)
		if p.rec.failures >= config.DefaultMaxConsecutiveWriteFailures {
			log.Errorf("disabling recording after %d consecutive failures", p.rec.failures)
			p.recording.Store(false)
			_ = p.rec.close()
			p.rec = nil
		}
		return
	}
	p.rec.failures = 0
}

// IsRunning reports whether the processing goroutine is live.
func (p *Processor) IsRunning() bool {
	return p.running.Load()
}

// IsMonitoring reports whether processed blocks are being fed to the
// playback stream.
func (p *Processor) IsMonitoring() bool {
	return p.monitoring.Load()
}

// IsGateEnabled reports whether a noise gate occupies chain slot 0.
func (p *Processor) IsGateEnabled() bool {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()
	return p.chain.slots[chainSlotGate].kind == slotGate
}

// SampleRate returns the engine's reference sample rate in Hz.
func (p *Processor) SampleRate() float64 {
	return p.sampleRate
}
