// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"dsp/internal/filter"
	"dsp/internal/log"
	"dsp/pkg/bitint"
)

// LoadConfig loads configuration from a YAML file at path. If path is
// empty it searches the default locations ("config.yaml"); if no file
// is found the built-in defaults are used. Environment variable
// overrides apply after the file, and the final configuration is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides apply after the file, before validation.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run
// with. Band-edge ranges are rechecked by the filter designer itself;
// this catches everything that would otherwise fail deep inside
// startup.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}

	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be in 1..%d, got %d",
			MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in %d..%d Hz, got %g",
			MinSampleRate, MaxSampleRate, c.Audio.SampleRate)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d",
			MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.OutputDevice < MinDeviceID {
		return fmt.Errorf("audio.output_device must be >= %d, got %d",
			MinDeviceID, c.Audio.OutputDevice)
	}

	if c.Spectrum.FFTSize <= 0 || !bitint.IsPowerOfTwo(c.Spectrum.FFTSize) {
		return fmt.Errorf("spectrum.fft_size must be a power of two, got %d",
			c.Spectrum.FFTSize)
	}
	if c.Spectrum.FFTSize > MaxFFTSize {
		return fmt.Errorf("spectrum.fft_size must be at most %d, got %d",
			MaxFFTSize, c.Spectrum.FFTSize)
	}
	if _, err := filter.ParseWindowType(c.Spectrum.Window); err != nil {
		return fmt.Errorf("spectrum.window: %w", err)
	}

	if c.Filter.Enabled {
		if _, err := filter.ParseFilterType(c.Filter.Type); err != nil {
			return fmt.Errorf("filter.type: %w", err)
		}
		if _, err := filter.ParseWindowType(c.Filter.Window); err != nil {
			return fmt.Errorf("filter.window: %w", err)
		}
		if c.Filter.TransitionWidth <= 0 {
			return fmt.Errorf("filter.transition_width must be positive, got %g",
				c.Filter.TransitionWidth)
		}
	}

	if c.Gate.AttackMs < 0 || c.Gate.ReleaseMs < 0 {
		return fmt.Errorf("gate attack/release times must not be negative")
	}

	if c.Transport.UDPEnabled || c.Transport.WSEnabled {
		if c.Transport.PublishRateHz <= 0 {
			return fmt.Errorf("transport.publish_rate_hz must be positive, got %d",
				c.Transport.PublishRateHz)
		}
	}
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPAddress, ":") {
		return fmt.Errorf("transport.udp_address %q appears invalid (missing port?)",
			c.Transport.UDPAddress)
	}
	if c.Transport.WSEnabled && c.Transport.WSAddress == "" {
		return fmt.Errorf("transport.ws_address must be set when the WebSocket hub is enabled")
	}

	return nil
}

// applyEnvOverrides applies ENV_* variable overrides on top of whatever
// the file (or the defaults) set. Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		fmt.Printf("configuration: Overriding log_level from env: %s\n", val)
	}

	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
			fmt.Printf("configuration: Overriding audio.input_device from env: %d\n", iVal)
		}
	}

	// ENV_UDP_{...} and ENV_WS_{...} are specific to the transport layer.

	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			fmt.Printf("configuration: Overriding transport.udp_enabled from env: %v\n", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_ADDRESS"); ok {
		cfg.Transport.UDPAddress = val
		fmt.Printf("configuration: Overriding transport.udp_address from env: %s\n", val)
	}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WSEnabled = bVal
			fmt.Printf("configuration: Overriding transport.ws_enabled from env: %v\n", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
		fmt.Printf("configuration: Overriding transport.ws_address from env: %s\n", val)
	}
	if val, ok := os.LookupEnv("ENV_PUBLISH_RATE_HZ"); ok {
		if iVal, err := strconv.Atoi(val); err == nil && iVal > 0 {
			cfg.Transport.PublishRateHz = iVal
			fmt.Printf("configuration: Overriding transport.publish_rate_hz from env: %d\n", iVal)
		}
	}
}
