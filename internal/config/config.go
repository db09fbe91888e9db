package config

import "math"

// Engine constants that define the boundaries and defaults for the
// processing pipeline. The reference sample rate is fixed: devices that
// cannot run at it are rejected rather than resampled.
const (
	ReferenceSampleRate = 48000 // engine-internal reference rate (Hz)
	BlockSize           = 2048  // samples pulled per processing iteration
	RingCapacity        = 96000 // SampleChannel capacity (~2 s at 48 kHz)
	TimeDomainMaxTaps   = 128   // longest filter run by direct convolution

	DefaultFFTSize = 4096 // spectrum FFT size
	MaxFFTSize     = 8192 // largest accepted FFT size (power of two)

	MaxWaveformSamples = 4096             // snapshot waveform bound
	MaxSpectrumBins    = MaxFFTSize/2 + 1 // snapshot spectrum bound

	// Default values for the engine configuration
	DefaultDeviceID        = MinDeviceID // system default device
	DefaultFramesPerBuffer = 512         // balanced latency/performance
	DefaultLowLatency      = false       // standard latency mode
	DefaultWindow          = "hamming"   // analysis and design window
	DefaultLogLevel        = "info"      // quiet operation

	// Filter design defaults
	DefaultFilterType      = "bandpass"
	DefaultTransitionWidth = 0.05 * math.Pi // radians

	// Noise gate defaults (mirror the gate's own defaults)
	DefaultGateThresholdDB = -40.0
	DefaultGateAttackMs    = 10.0
	DefaultGateReleaseMs   = 100.0

	// Transport defaults
	DefaultUDPAddress    = "127.0.0.1:9090"
	DefaultWSAddress     = ":8080"
	DefaultPublishRateHz = 60

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // maximum frames per buffer (power of 2)

	// Error handling configuration
	DefaultMaxConsecutiveWriteFailures = 5 // recording failures before disarm
)

// Config holds all runtime configuration for the engine. It is built
// from defaults, then an optional YAML file, then environment
// variables, then command line flags, in that order of precedence.
type Config struct {
	LogLevel string `yaml:"log_level"` // debug, info, warn, error, fatal
	Command  string `yaml:"-"`         // one-off command (e.g. "list"), CLI only
	TUIMode  bool   `yaml:"-"`         // interactive device picker, CLI only

	Audio     AudioConfig     `yaml:"audio"`
	Filter    FilterConfig    `yaml:"filter"`
	Gate      GateConfig      `yaml:"gate"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig selects devices and stream geometry.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio index, -1 for default
	OutputDevice    int     `yaml:"output_device"`     // monitoring device, -1 for default
	SampleRate      float64 `yaml:"sample_rate"`       // Hz; the engine reference rate
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // callback period in frames
	LowLatency      bool    `yaml:"low_latency"`       // request low latency from the device
	Monitor         bool    `yaml:"monitor"`           // play the processed stream back
	Bypass          bool    `yaml:"bypass"`            // skip the filter chain
}

// FilterConfig describes the user filter installed at startup. Band
// edges are normalized frequencies in units of pi (1 = Nyquist); the
// transition width is in radians.
type FilterConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Type            string  `yaml:"type"`   // lowpass, highpass, bandpass
	OmegaLow        float64 `yaml:"omega_low"`
	OmegaHigh       float64 `yaml:"omega_high"`
	TransitionWidth float64 `yaml:"transition_width"`
	Window          string  `yaml:"window"` // design window
}

// GateConfig describes the noise gate installed at startup.
type GateConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ThresholdDB float64 `yaml:"threshold_db"`
	AttackMs    float64 `yaml:"attack_ms"`
	ReleaseMs   float64 `yaml:"release_ms"`
}

// SpectrumConfig shapes the analyzer.
type SpectrumConfig struct {
	FFTSize         int    `yaml:"fft_size"` // power of two, at most MaxFFTSize
	Window          string `yaml:"window"`
	ApplyCorrection bool   `yaml:"apply_correction"` // window amplitude compensation
}

// RecordingConfig controls WAV capture of the processed stream.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"` // empty: recording-<timestamp>.wav
}

// TransportConfig controls the snapshot publishers.
type TransportConfig struct {
	PublishRateHz int    `yaml:"publish_rate_hz"` // snapshot poll rate for all transports
	UDPEnabled    bool   `yaml:"udp_enabled"`
	UDPAddress    string `yaml:"udp_address"` // target host:port for binary spectrum packets
	WSEnabled     bool   `yaml:"ws_enabled"`
	WSAddress     string `yaml:"ws_address"` // listen address for the WebSocket hub
}

// NewConfig creates a Config populated with default values. This is the
// base configuration before YAML, environment, or flag overrides.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      ReferenceSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
		},
		Filter: FilterConfig{
			Type:            DefaultFilterType,
			OmegaLow:        0.1,
			OmegaHigh:       0.4,
			TransitionWidth: DefaultTransitionWidth,
			Window:          DefaultWindow,
		},
		Gate: GateConfig{
			ThresholdDB: DefaultGateThresholdDB,
			AttackMs:    DefaultGateAttackMs,
			ReleaseMs:   DefaultGateReleaseMs,
		},
		Spectrum: SpectrumConfig{
			FFTSize:         DefaultFFTSize,
			Window:          DefaultWindow,
			ApplyCorrection: true,
		},
		Transport: TransportConfig{
			PublishRateHz: DefaultPublishRateHz,
			UDPAddress:    DefaultUDPAddress,
			WSAddress:     DefaultWSAddress,
		},
	}
}
