package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"dsp/internal/config"
)

// Capture/playback error classes. Wrapped around the underlying
// PortAudio error where one exists; callers branch with errors.Is.
var (
	ErrNoDevice              = errors.New("no usable audio device")
	ErrDeviceInfo            = errors.New("device metadata unreadable")
	ErrStreamOpen            = errors.New("could not open audio stream")
	ErrStreamStart           = errors.New("could not start audio stream")
	ErrUnsupportedSampleRate = errors.New("device does not support the engine sample rate")
)

// PortAudio entry points, swappable in tests so device selection logic
// can run without audio hardware.
var (
	paLibInitialize            = portaudio.Initialize
	paLibTerminate             = portaudio.Terminate
	paLibDevicesFunc           = portaudio.Devices
	paLibDefaultInputDeviceFn  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFn = portaudio.DefaultOutputDevice
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes an audio device to callers that must not depend on
// PortAudio types (CLI listing, device picker).
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// ListDevices returns descriptors for every available audio device.
// Initializes PortAudio for the duration of the call, so it works
// standalone before the engine starts.
func ListDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	infos, err := paDevices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}

	return devices, nil
}

// PrintDevices writes a human-readable device listing to stdout. For
// each device it shows the ID, name, direction, channel counts, and
// default sample rate.
func PrintDevices(devices []Device) {
	fmt.Printf("\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		deviceType := ""
		if device.MaxInputChannels > 0 && device.MaxOutputChannels > 0 {
			deviceType = "Input/Output"
		} else if device.MaxInputChannels > 0 {
			deviceType = "Input"
		} else if device.MaxOutputChannels > 0 {
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", device.ID, device.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Println()
	}
}

// InputDevice retrieves the audio input device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultInputDeviceFn()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
		return device, nil
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: invalid device ID %d", ErrNoDevice, deviceID)
	}
	if devices[deviceID].MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: device %d has no input channels", ErrNoDevice, deviceID)
	}
	return devices[deviceID], nil
}

// OutputDevice retrieves the audio output device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultOutputDeviceFn()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
		return device, nil
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: invalid device ID %d", ErrNoDevice, deviceID)
	}
	if devices[deviceID].MaxOutputChannels < 1 {
		return nil, fmt.Errorf("%w: device %d has no output channels", ErrNoDevice, deviceID)
	}
	return devices[deviceID], nil
}

// paDevices returns all available PortAudio devices, never nil on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceInfo, err)
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
