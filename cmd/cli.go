package cmd

import (
	"fmt"
	"os"
	"time"

	"dsp/internal/config"
	"dsp/pkg/build"

	"github.com/spf13/cobra"
)

// ParseArgs builds the engine configuration from defaults, an optional
// YAML file, environment variables, and command line flags, in that
// order of precedence. A nil config with a nil error means cobra
// handled the invocation itself (help, version, unknown command).
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	// Staging area for flag values; only flags the user actually set
	// are copied onto the loaded configuration.
	flags := config.NewConfig()

	var (
		options    *config.Config
		configPath string
		verbose    bool
	)

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		applyFlagOverrides(cfg, cmd, flags, verbose)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
				cfg.Recording.OutputFile = "recording-" +
					time.Now().UTC().Format("02-01-2006-150405") + ".wav"
			}
			options = cfg
			return nil
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("%s %s (commit %s, built %s)\n",
		buildInfo.Name, buildInfo.Version, buildInfo.Commit, buildInfo.Time))

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			cfg.Command = "list"
			options = cfg
			return nil
		},
	}
	rootCmd.AddCommand(listCmd)

	// Devices command (interactive picker)
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse audio devices interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			cfg.TUIMode = true
			options = cfg
			return nil
		},
	}
	rootCmd.AddCommand(devicesCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file (default: ./config.yaml if present)")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&flags.Audio.InputDevice, "device", "d", flags.Audio.InputDevice,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVar(&flags.Audio.OutputDevice, "output-device", flags.Audio.OutputDevice,
		"Monitoring output device ID (-1 for system default)")
	rootCmd.PersistentFlags().Float64VarP(&flags.Audio.SampleRate, "sample-rate", "s", flags.Audio.SampleRate,
		"Sample rate in Hertz; devices that cannot run at it are rejected")
	rootCmd.PersistentFlags().IntVarP(&flags.Audio.FramesPerBuffer, "frames-per-buffer", "b", flags.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Audio.LowLatency, "low-latency", "l", flags.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().BoolVarP(&flags.Audio.Monitor, "monitor", "m", flags.Audio.Monitor,
		"Play the processed stream back on the output device")
	rootCmd.PersistentFlags().BoolVar(&flags.Audio.Bypass, "bypass", flags.Audio.Bypass,
		"Skip the filter chain (analysis still sees the raw signal)")

	// Spectrum Configuration
	rootCmd.PersistentFlags().IntVar(&flags.Spectrum.FFTSize, "fft-size", flags.Spectrum.FFTSize,
		"FFT size for spectral analysis (power of two)")
	rootCmd.PersistentFlags().StringVarP(&flags.Spectrum.Window, "window", "w", flags.Spectrum.Window,
		"Analysis window: rectangular, hann, hamming, blackman")

	// Filter Configuration
	rootCmd.PersistentFlags().StringVar(&flags.Filter.Type, "filter", flags.Filter.Type,
		"Install a filter at startup: lowpass, highpass, bandpass")
	rootCmd.PersistentFlags().Float64Var(&flags.Filter.OmegaLow, "filter-low", flags.Filter.OmegaLow,
		"Lower band edge as a fraction of Nyquist (0..1)")
	rootCmd.PersistentFlags().Float64Var(&flags.Filter.OmegaHigh, "filter-high", flags.Filter.OmegaHigh,
		"Upper band edge as a fraction of Nyquist (0..1)")
	rootCmd.PersistentFlags().Float64Var(&flags.Filter.TransitionWidth, "filter-transition", flags.Filter.TransitionWidth,
		"Transition band width in radians")
	rootCmd.PersistentFlags().StringVar(&flags.Filter.Window, "filter-window", flags.Filter.Window,
		"Design window for the filter")

	// Noise Gate Configuration
	rootCmd.PersistentFlags().BoolVar(&flags.Gate.Enabled, "gate", flags.Gate.Enabled,
		"Enable the noise gate ahead of the filter")
	rootCmd.PersistentFlags().Float64Var(&flags.Gate.ThresholdDB, "gate-threshold", flags.Gate.ThresholdDB,
		"Gate threshold in dBFS")
	rootCmd.PersistentFlags().Float64Var(&flags.Gate.AttackMs, "gate-attack", flags.Gate.AttackMs,
		"Gate attack time in milliseconds")
	rootCmd.PersistentFlags().Float64Var(&flags.Gate.ReleaseMs, "gate-release", flags.Gate.ReleaseMs,
		"Gate release time in milliseconds")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&flags.Recording.Enabled, "record", "r", flags.Recording.Enabled,
		"Record the processed stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&flags.Recording.OutputFile, "output", "o", flags.Recording.OutputFile,
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Transport Configuration
	rootCmd.PersistentFlags().BoolVar(&flags.Transport.UDPEnabled, "udp", flags.Transport.UDPEnabled,
		"Publish binary spectrum packets over UDP")
	rootCmd.PersistentFlags().StringVar(&flags.Transport.UDPAddress, "udp-address", flags.Transport.UDPAddress,
		"UDP target address for spectrum packets")
	rootCmd.PersistentFlags().BoolVar(&flags.Transport.WSEnabled, "ws", flags.Transport.WSEnabled,
		"Serve spectrum frames over WebSocket")
	rootCmd.PersistentFlags().StringVar(&flags.Transport.WSAddress, "ws-address", flags.Transport.WSAddress,
		"WebSocket listen address")
	rootCmd.PersistentFlags().IntVar(&flags.Transport.PublishRateHz, "publish-rate", flags.Transport.PublishRateHz,
		"Snapshot publish rate in Hz for all transports")

	// Debug Configuration
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel,
		"Log level: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Shortcut for --log-level debug")

	// Execute the CLI
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}

// applyFlagOverrides copies explicitly-set flags onto cfg. YAML and
// environment values survive unless the user said otherwise on the
// command line.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command, flags *config.Config, verbose bool) {
	f := cmd.Flags()

	if f.Changed("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	if f.Changed("device") {
		cfg.Audio.InputDevice = flags.Audio.InputDevice
	}
	if f.Changed("output-device") {
		cfg.Audio.OutputDevice = flags.Audio.OutputDevice
	}
	if f.Changed("sample-rate") {
		cfg.Audio.SampleRate = flags.Audio.SampleRate
	}
	if f.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = flags.Audio.FramesPerBuffer
	}
	if f.Changed("low-latency") {
		cfg.Audio.LowLatency = flags.Audio.LowLatency
	}
	if f.Changed("monitor") {
		cfg.Audio.Monitor = flags.Audio.Monitor
	}
	if f.Changed("bypass") {
		cfg.Audio.Bypass = flags.Audio.Bypass
	}

	if f.Changed("fft-size") {
		cfg.Spectrum.FFTSize = flags.Spectrum.FFTSize
	}
	if f.Changed("window") {
		cfg.Spectrum.Window = flags.Spectrum.Window
	}

	// Naming a filter type on the command line installs the filter.
	if f.Changed("filter") {
		cfg.Filter.Enabled = true
		cfg.Filter.Type = flags.Filter.Type
	}
	if f.Changed("filter-low") {
		cfg.Filter.OmegaLow = flags.Filter.OmegaLow
	}
	if f.Changed("filter-high") {
		cfg.Filter.OmegaHigh = flags.Filter.OmegaHigh
	}
	if f.Changed("filter-transition") {
		cfg.Filter.TransitionWidth = flags.Filter.TransitionWidth
	}
	if f.Changed("filter-window") {
		cfg.Filter.Window = flags.Filter.Window
	}

	if f.Changed("gate") {
		cfg.Gate.Enabled = flags.Gate.Enabled
	}
	if f.Changed("gate-threshold") {
		cfg.Gate.ThresholdDB = flags.Gate.ThresholdDB
	}
	if f.Changed("gate-attack") {
		cfg.Gate.AttackMs = flags.Gate.AttackMs
	}
	if f.Changed("gate-release") {
		cfg.Gate.ReleaseMs = flags.Gate.ReleaseMs
	}

	if f.Changed("record") {
		cfg.Recording.Enabled = flags.Recording.Enabled
	}
	if f.Changed("output") {
		cfg.Recording.OutputFile = flags.Recording.OutputFile
	}

	if f.Changed("udp") {
		cfg.Transport.UDPEnabled = flags.Transport.UDPEnabled
	}
	if f.Changed("udp-address") {
		cfg.Transport.UDPAddress = flags.Transport.UDPAddress
	}
	if f.Changed("ws") {
		cfg.Transport.WSEnabled = flags.Transport.WSEnabled
	}
	if f.Changed("ws-address") {
		cfg.Transport.WSAddress = flags.Transport.WSAddress
	}
	if f.Changed("publish-rate") {
		cfg.Transport.PublishRateHz = flags.Transport.PublishRateHz
	}
}
