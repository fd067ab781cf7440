// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"tempo/internal/audio"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ScreenType defines which screen is currently active.
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the device and sample rate chosen in the device list.
type Selection struct {
	DeviceID   int
	DeviceName string
	SampleRate float64
}

// YAML renders the selection as an audio config section.
func (s Selection) YAML() string {
	return fmt.Sprintf("audio:\n  input_device: %d # %s\n  sample_rate: %.0f\n", s.DeviceID, s.DeviceName, s.SampleRate)
}

// SampleRates offered on the configuration screen.
var SampleRates = []float64{44100, 48000, 88200, 96000}

var (
	quitKey    = key.NewBinding(key.WithKeys("q", "ctrl+c"))
	upKey      = key.NewBinding(key.WithKeys("up", "k"))
	downKey    = key.NewBinding(key.WithKeys("down", "j"))
	confirmKey = key.NewBinding(key.WithKeys("enter"))
	backKey    = key.NewBinding(key.WithKeys("esc"))
)

// DeviceListModel lists host audio devices and lets the user pick an input
// device and sample rate.
type DeviceListModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	selection       *Selection

	fetch func() ([]audio.Device, error)
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a device list that queries PortAudio.
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{
		activeScreen: ListScreen,
		fetch:        audio.HostDevices,
	}
}

// Init fetches the device list.
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

// Selection returns the confirmed choice, if any.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultInput {
				m.selectedIndex = i
				break
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		switch m.activeScreen {
		case ListScreen:
			switch {
			case key.Matches(msg, upKey):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, downKey):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, confirmKey):
				if len(m.devices) > 0 && m.devices[m.selectedIndex].CanCapture() {
					m.activeScreen = ConfigScreen
					m.sampleRateIndex = indexOfRate(m.devices[m.selectedIndex].DefaultSampleRate)
				}
			}

		case ConfigScreen:
			switch {
			case key.Matches(msg, backKey):
				m.activeScreen = ListScreen
			case key.Matches(msg, upKey):
				if m.sampleRateIndex > 0 {
					m.sampleRateIndex--
				}
			case key.Matches(msg, downKey):
				if m.sampleRateIndex < len(SampleRates)-1 {
					m.sampleRateIndex++
				}
			case key.Matches(msg, confirmKey):
				d := m.devices[m.selectedIndex]
				m.selection = &Selection{DeviceID: d.ID, DeviceName: d.Name, SampleRate: SampleRates[m.sampleRateIndex]}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// refresh re-renders the active screen into the viewport.
func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen {
		m.viewport.SetContent(m.renderDeviceConfig())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

func (m DeviceListModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\nPress any key to exit."
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Sample Rate • Enter: Select • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := ""
		if device.IsDefaultInput {
			marker = " *"
		}
		deviceInfo := fmt.Sprintf("[%d] %s (%s)%s\n", device.ID, device.Name, device.Kind(), marker)
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			deviceInfo = highlightStyle.Render(deviceInfo)
		case !device.CanCapture():
			deviceInfo = dimStyle.Render(deviceInfo)
		}
		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	sb.WriteString("Sample Rate:\n")
	for i, rate := range SampleRates {
		cursor := " "
		if i == m.sampleRateIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", cursor, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func indexOfRate(rate float64) int {
	for i, r := range SampleRates {
		if r == rate {
			return i
		}
	}
	return 0
}

// RunDeviceList runs the device list full screen and returns the confirmed
// selection.
func RunDeviceList() (Selection, bool, error) {
	p := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok := final.(DeviceListModel).Selection()
	return sel, ok, nil
}
