package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"dsp/cmd"
	"dsp/internal/audio"
	"dsp/internal/config"
	"dsp/internal/filter"
	"dsp/internal/log"
	"dsp/internal/transport"
	"dsp/internal/transport/udp"
	"dsp/internal/tui"
	"dsp/pkg/build"
)

// main is the entry point for the DSP engine. The program flow is
// divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture stream and the processing engine
//   - Install the configured filter and noise gate
//   - Start monitoring, recording, and snapshot transports
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop transports, recording, and the engine in order
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Build info is injected by ldflags; development builds keep the
	// compiled-in defaults.
	if err := build.Initialize(); err != nil {
		log.Warnf("build info: %v (development build)", err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio engine (time-critical)
	// - One thread for transports and I/O operations
	runtime.GOMAXPROCS(2)

	// Parse command line arguments and build the configuration
	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg == nil {
		// cobra handled the invocation itself (help or version).
		return
	}

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	// Handle one-off commands that don't require the engine to be
	// running
	if cfg.Command == "list" {
		devices, err := audio.ListDevices()
		if err != nil {
			log.Fatalf("listing devices: %v", err)
		}
		audio.PrintDevices(devices)
		return
	}
	if cfg.TUIMode {
		id, err := tui.StartDeviceListUI()
		if err != nil {
			log.Fatalf("device browser: %v", err)
		}
		if id != config.MinDeviceID {
			fmt.Printf("Selected device %d. Run with --device %d to capture from it.\n", id, id)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	proc, err := audio.NewProcessor(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// CRITICAL: start of real-time capture. PortAudio begins invoking
	// the input callback once Start returns, marking the start of the
	// hot path.
	deviceName, err := proc.Start()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.Filter.Enabled {
		if err := installFilter(proc, cfg); err != nil {
			log.Fatalf("installing filter: %v", err)
		}
	}

	if cfg.Audio.Monitor {
		if err := proc.EnableMonitoring(); err != nil {
			log.Fatalf("enabling monitoring: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		if err := proc.StartRecording(cfg.Recording.OutputFile); err != nil {
			log.Fatalf("starting recording: %v", err)
		}
	}

	publisher, err := startTransports(proc, cfg)
	if err != nil {
		log.Fatalf("starting transports: %v", err)
	}

	fmt.Printf("Capturing from %q. Press Ctrl+C to stop.\n", deviceName)

	// Block until termination signal is received
	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	// Transports first: nothing should poll the engine while it stops.
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("closing transports: %v", err)
		}
	}

	// Stop recording if active and save the file
	if cfg.Recording.Enabled {
		if err := proc.StopRecording(); err != nil {
			log.Errorf("stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	// Clean up engine resources
	if err := proc.Close(); err != nil {
		log.Errorf("closing engine: %v", err)
	}
}

// installFilter translates the filter section of the configuration into
// a designed filter on the processor. Band edges arrive in units of π
// (1 = Nyquist), matching the designer's convention.
func installFilter(proc *audio.Processor, cfg *config.Config) error {
	kind, err := filter.ParseFilterType(cfg.Filter.Type)
	if err != nil {
		return err
	}
	window, err := filter.ParseWindowType(cfg.Filter.Window)
	if err != nil {
		return err
	}

	_, _, err = proc.DesignFilter(
		cfg.Filter.OmegaLow,
		cfg.Filter.OmegaHigh,
		cfg.Filter.TransitionWidth,
		window,
		kind,
	)
	return err
}

// startTransports builds the configured snapshot transports and starts
// a publisher polling the engine for them. Returns nil when no
// transport is enabled.
func startTransports(proc *audio.Processor, cfg *config.Config) (*transport.Publisher, error) {
	transports := make([]transport.Transport, 0, 3)

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPAddress)
		if err != nil {
			return nil, err
		}
		udpTransport, err := udp.NewUDPTransport(sender)
		if err != nil {
			sender.Close()
			return nil, err
		}
		transports = append(transports, udpTransport)
	}

	if cfg.Transport.WSEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WSAddress))
	}

	// At debug level, peak readouts go to the log alongside whatever
	// else is enabled.
	if log.GetLevel() == log.LevelDebug {
		transports = append(transports, transport.NewLoggingTransport())
	}

	if len(transports) == 0 {
		return nil, nil
	}

	publisher, err := transport.NewPublisher(cfg.Transport.PublishRateHz, proc, transports...)
	if err != nil {
		for _, t := range transports {
			t.Close()
		}
		return nil, err
	}
	publisher.Start()
	return publisher, nil
}
