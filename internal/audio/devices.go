// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"tempo/internal/config"

	"github.com/gordonklaus/portaudio"
	"github.com/pkg/errors"
)

// PortAudio entry points, replaceable in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paDevicesFunc               = paDevices
)

// Initialize sets up the PortAudio subsystem. It must be paired with
// Terminate.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return errors.Wrap(err, "failed to initialize PortAudio")
	}
	return nil
}

// Terminate shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return errors.Wrap(err, "failed to terminate PortAudio")
	}
	return nil
}

// HostDevices returns every device PortAudio reports, indexed by ID.
func HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	// A missing default input is not an error when listing.
	defaultInput, _ := paLibDefaultInputDeviceFunc()

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = deviceFromInfo(i, info, defaultInput)
	}
	return devices, nil
}

// InputDevice resolves deviceID to a PortAudio device. config.MinDeviceID
// selects the system default input.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == config.MinDeviceID {
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, errors.Wrap(err, "no default input device")
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, errors.Errorf("invalid device ID: %d", deviceID)
	}
	device := devices[deviceID]
	if device.MaxInputChannels < 1 {
		return nil, errors.Errorf("device %d (%s) does not support input", deviceID, device.Name)
	}
	return device, nil
}

// ListDevices writes a human readable device listing to w.
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")
	for _, d := range devices {
		marker := ""
		if d.IsDefaultInput {
			marker = " *default input*"
		}
		fmt.Fprintf(w, "[%d] %s (%s)%s\n", d.ID, d.Name, d.Kind(), marker)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", d.MaxInputChannels, d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n\n",
			d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000)
	}
	return nil
}

// paDevices wraps the library call so a nil result becomes an empty slice.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		return []*portaudio.DeviceInfo{}, nil
	}
	return devices, nil
}
