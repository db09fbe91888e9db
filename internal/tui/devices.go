package tui

import (
	"fmt"
	"strings"

	"dsp/internal/audio"
	"dsp/internal/config"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	DetailScreen
)

// DeviceListModel represents the Bubble Tea model for browsing audio
// devices and choosing one to run the engine on.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	// engineRate is the fixed processing rate; devices whose default
	// rate matches it are highlighted in the listing.
	engineRate float64

	// chosenID is the device confirmed on the detail screen, or
	// config.MinDeviceID when the user quit without choosing.
	chosenID int
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	return fetchDevices
}

// fetchDevices gets the available audio devices
func fetchDevices() tea.Msg {
	devices, err := audio.ListDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// Update handles input and updates the model
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// Initialize the viewport with the window size
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true

			// If we already have devices, render them now
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			// Just update viewport dimensions
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		// First check for keys that should work everywhere
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		// Then handle screen-specific keys
		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
					m.viewport.SetContent(m.renderDevices())
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = DetailScreen
					m.viewport.SetContent(m.renderDeviceDetail())
				}
			}
		} else if m.activeScreen == DetailScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				// Return to list screen
				m.activeScreen = ListScreen
				m.viewport.SetContent(m.renderDevices())

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				// Confirm this device and hand it back to the CLI.
				m.chosenID = m.devices[m.selectedIndex].ID
				return m, tea.Quit
			}
		}
	}

	// Handle viewport updates
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Details • q: Quit")
	} else {
		title = titleStyle.Render("Device Details")
		help = infoStyle.Render("Enter: Use This Device • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// renderDevices formats the device list
func (m DeviceListModel) renderDevices() string {
	var sb strings.Builder

	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n",
			device.ID, device.Name, deviceDirection(device))
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)

		rateLine := fmt.Sprintf("    Default sample rate: %.0f Hz", device.DefaultSampleRate)
		if device.DefaultSampleRate == m.engineRate {
			rateLine += " ← engine rate"
		}
		deviceInfo += rateLine + "\n"

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderDeviceDetail formats the detail screen for the selected device.
func (m DeviceListModel) renderDeviceDetail() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	sb.WriteString(fmt.Sprintf("Device: %s\n\n", device.Name))
	sb.WriteString(fmt.Sprintf("  ID:                  %d\n", device.ID))
	sb.WriteString(fmt.Sprintf("  Direction:           %s\n", deviceDirection(device)))
	sb.WriteString(fmt.Sprintf("  Input channels:      %d\n", device.MaxInputChannels))
	sb.WriteString(fmt.Sprintf("  Output channels:     %d\n", device.MaxOutputChannels))
	sb.WriteString(fmt.Sprintf("  Default sample rate: %.0f Hz\n\n", device.DefaultSampleRate))

	if device.MaxInputChannels < 1 {
		sb.WriteString(dimStyle.Render("This device has no input channels; the engine cannot capture from it.") + "\n\n")
	}
	if device.DefaultSampleRate == m.engineRate {
		sb.WriteString(fmt.Sprintf("Default rate matches the engine rate (%.0f Hz).\n", m.engineRate))
	} else {
		sb.WriteString(fmt.Sprintf("Engine runs at %.0f Hz; the device will be probed for that rate on startup.\n", m.engineRate))
	}

	return sb.String()
}

// deviceDirection labels a device by its usable directions.
func deviceDirection(device audio.Device) string {
	switch {
	case device.MaxInputChannels > 0 && device.MaxOutputChannels > 0:
		return "Input/Output"
	case device.MaxInputChannels > 0:
		return "Input"
	case device.MaxOutputChannels > 0:
		return "Output"
	}
	return "Unavailable"
}

// NewDeviceListModel creates a new device list model
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{
		selectedIndex: 0,
		activeScreen:  ListScreen,
		engineRate:    float64(config.ReferenceSampleRate),
		chosenID:      config.MinDeviceID,
	}
}

// StartDeviceListUI launches the device browser and returns the device
// ID the user confirmed, or config.MinDeviceID if they quit without
// choosing one.
func StartDeviceListUI() (int, error) {
	p := tea.NewProgram(
		NewDeviceListModel(),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return config.MinDeviceID, err
	}
	if m, ok := final.(DeviceListModel); ok {
		return m.chosenID, nil
	}
	return config.MinDeviceID, nil
}
