// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// OutputStream plays monitor samples from a SampleChannel on a
// PortAudio device. The callback is the channel's only consumer; the
// mono signal is duplicated across both channels on stereo devices.
// When the channel runs dry the remainder of the period is zero-filled
// and an underrun is counted, so playback degrades to silence rather
// than stalling the device.
type OutputStream struct {
	device    *portaudio.DeviceInfo
	stream    *portaudio.Stream
	ch        *SampleChannel
	scratch   []float64
	channels  int
	underruns atomic.Uint64
}

// OpenOutputStream selects the output device for deviceID, verifies it
// can play at sampleRate, and opens (but does not start) a playback
// stream draining ch.
func OpenOutputStream(deviceID int, sampleRate float64, framesPerBuffer int, lowLatency bool, ch *SampleChannel) (*OutputStream, error) {
	device, err := OutputDevice(deviceID)
	if err != nil {
		return nil, err
	}

	channels := 1
	if device.MaxOutputChannels >= 2 {
		channels = 2
	}

	latency := device.DefaultHighOutputLatency
	if lowLatency {
		latency = device.DefaultLowOutputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: framesPerBuffer,
		SampleRate:      sampleRate,
	}

	s := &OutputStream{
		device:   device,
		ch:       ch,
		scratch:  make([]float64, framesPerBuffer),
		channels: channels,
	}

	if err := portaudio.IsFormatSupported(params, s.processOutput); err != nil {
		return nil, fmt.Errorf("%w: %s at %.0f Hz: %w",
			ErrUnsupportedSampleRate, device.Name, sampleRate, err)
	}

	stream, err := portaudio.OpenStream(params, s.processOutput)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamOpen, err)
	}
	s.stream = stream

	return s, nil
}

// Start begins playback. On failure the stream is closed.
func (s *OutputStream) Start() error {
	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	return nil
}

// Stop halts playback without releasing the stream.
func (s *OutputStream) Stop() error {
	return s.stream.Stop()
}

// Close releases the stream.
func (s *OutputStream) Close() error {
	return s.stream.Close()
}

// Name returns the playback device's name.
func (s *OutputStream) Name() string {
	return s.device.Name
}

// Underruns returns the number of callback periods that ran out of
// monitor samples.
func (s *OutputStream) Underruns() uint64 {
	return s.underruns.Load()
}

// processOutput is the playback callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (s *OutputStream) processOutput(out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	frames := len(out) / s.channels
	if frames > len(s.scratch) {
		frames = len(s.scratch)
	}

	got := s.ch.Read(s.scratch[:frames])
	if got < frames {
		s.underruns.Add(1)
	}

	for i := 0; i < got; i++ {
		v := float32(s.scratch[i])
		base := i * s.channels
		for c := 0; c < s.channels; c++ {
			out[base+c] = v
		}
	}
	for i := got * s.channels; i < len(out); i++ {
		out[i] = 0
	}
}
