package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dsp/internal/config"
)

// runParseArgs invokes ParseArgs with a crafted command line.
func runParseArgs(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	orig := os.Args
	os.Args = append([]string{"dsp"}, args...)
	t.Cleanup(func() { os.Args = orig })

	return ParseArgs()
}

func TestParseArgsDefaults(t *testing.T) {
	cfg, err := runParseArgs(t)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("ParseArgs() returned nil config")
	}

	if cfg.Command != "" || cfg.TUIMode {
		t.Errorf("default invocation Command=%q TUIMode=%v, want engine run", cfg.Command, cfg.TUIMode)
	}
	if cfg.Audio.InputDevice != config.DefaultDeviceID {
		t.Errorf("InputDevice = %d, want %d", cfg.Audio.InputDevice, config.DefaultDeviceID)
	}
	if cfg.Spectrum.FFTSize != config.DefaultFFTSize {
		t.Errorf("FFTSize = %d, want %d", cfg.Spectrum.FFTSize, config.DefaultFFTSize)
	}
	if cfg.Filter.Enabled {
		t.Error("filter enabled without a --filter flag")
	}
	if cfg.Gate.Enabled {
		t.Error("gate enabled without a --gate flag")
	}
}

func TestParseArgsFlagOverrides(t *testing.T) {
	cfg, err := runParseArgs(t,
		"--device", "3",
		"--filter", "lowpass",
		"--filter-high", "0.3",
		"--gate",
		"--gate-threshold", "-50",
		"--ws",
		"--publish-rate", "30",
		"--log-level", "debug",
	)
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	if cfg.Audio.InputDevice != 3 {
		t.Errorf("InputDevice = %d, want 3", cfg.Audio.InputDevice)
	}
	if !cfg.Filter.Enabled || cfg.Filter.Type != "lowpass" {
		t.Errorf("filter = (%v, %q), want enabled lowpass", cfg.Filter.Enabled, cfg.Filter.Type)
	}
	if cfg.Filter.OmegaHigh != 0.3 {
		t.Errorf("OmegaHigh = %g, want 0.3", cfg.Filter.OmegaHigh)
	}
	if !cfg.Gate.Enabled || cfg.Gate.ThresholdDB != -50 {
		t.Errorf("gate = (%v, %g dB), want enabled at -50 dB", cfg.Gate.Enabled, cfg.Gate.ThresholdDB)
	}
	if !cfg.Transport.WSEnabled {
		t.Error("WebSocket transport not enabled")
	}
	if cfg.Transport.PublishRateHz != 30 {
		t.Errorf("PublishRateHz = %d, want 30", cfg.Transport.PublishRateHz)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}

	// Untouched fields keep their defaults.
	if cfg.Audio.FramesPerBuffer != config.DefaultFramesPerBuffer {
		t.Errorf("FramesPerBuffer = %d, want default %d",
			cfg.Audio.FramesPerBuffer, config.DefaultFramesPerBuffer)
	}
	if cfg.Gate.AttackMs != config.DefaultGateAttackMs {
		t.Errorf("Gate.AttackMs = %g, want default %g",
			cfg.Gate.AttackMs, config.DefaultGateAttackMs)
	}
}

func TestParseArgsVerboseShortcut(t *testing.T) {
	cfg, err := runParseArgs(t, "-v")
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel with -v = %q, want debug", cfg.LogLevel)
	}
}

func TestParseArgsConfigFilePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	content := `log_level: warn
audio:
  input_device: 5
  frames_per_buffer: 256
transport:
  udp_enabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := runParseArgs(t, "--config", path, "--device", "7")
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}

	// The flag wins over the file.
	if cfg.Audio.InputDevice != 7 {
		t.Errorf("InputDevice = %d, want flag value 7", cfg.Audio.InputDevice)
	}
	// The file wins over the defaults.
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want file value warn", cfg.LogLevel)
	}
	if cfg.Audio.FramesPerBuffer != 256 {
		t.Errorf("FramesPerBuffer = %d, want file value 256", cfg.Audio.FramesPerBuffer)
	}
	if !cfg.Transport.UDPEnabled {
		t.Error("UDP transport not enabled by the file")
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Bad FFT size", []string{"--fft-size", "3000"}, "power of two"},
		{"Bad window", []string{"--window", "kaiser"}, "unknown window type"},
		{"Bad log level", []string{"--log-level", "chatty"}, "log_level"},
		{"Missing config file", []string{"--config", "/no/such/file.yaml"}, "config file"},
		{"Unknown command", []string{"bogus"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runParseArgs(t, tt.args...)
			if err == nil {
				t.Fatal("ParseArgs() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseArgs() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseArgsSubcommands(t *testing.T) {
	cfg, err := runParseArgs(t, "list")
	if err != nil {
		t.Fatalf("ParseArgs(list) error = %v", err)
	}
	if cfg.Command != "list" || cfg.TUIMode {
		t.Errorf("list: Command=%q TUIMode=%v, want list command", cfg.Command, cfg.TUIMode)
	}

	cfg, err = runParseArgs(t, "devices")
	if err != nil {
		t.Fatalf("ParseArgs(devices) error = %v", err)
	}
	if !cfg.TUIMode {
		t.Error("devices: TUIMode not set")
	}
}

func TestParseArgsRecordingDefaultName(t *testing.T) {
	cfg, err := runParseArgs(t, "--record")
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !cfg.Recording.Enabled {
		t.Fatal("recording not enabled")
	}
	name := cfg.Recording.OutputFile
	if !strings.HasPrefix(name, "recording-") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("default output file = %q, want recording-<timestamp>.wav", name)
	}
}
