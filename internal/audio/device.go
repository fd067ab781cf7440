// SPDX-License-Identifier: MIT
package audio

import (
	"time"

	"github.com/gordonklaus/portaudio"
)

// Device describes a host audio device.
type Device struct {
	ID                int           `json:"id"`
	Name              string        `json:"name"`
	HostAPI           string        `json:"host_api,omitempty"`
	MaxInputChannels  int           `json:"max_input_channels"`
	MaxOutputChannels int           `json:"max_output_channels"`
	DefaultSampleRate float64       `json:"default_sample_rate"`
	LowInputLatency   time.Duration `json:"low_input_latency"`
	HighInputLatency  time.Duration `json:"high_input_latency"`
	IsDefaultInput    bool          `json:"is_default_input,omitempty"`
}

// Kind returns "Input", "Output", "Input/Output" or "" for a device with no
// channels.
func (d Device) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// CanCapture reports whether the device has at least one input channel.
func (d Device) CanCapture() bool {
	return d.MaxInputChannels > 0
}

func deviceFromInfo(id int, info *portaudio.DeviceInfo, defaultInput *portaudio.DeviceInfo) Device {
	return Device{
		ID:                id,
		Name:              info.Name,
		HostAPI:           hostName(info),
		MaxInputChannels:  info.MaxInputChannels,
		MaxOutputChannels: info.MaxOutputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
		LowInputLatency:   info.DefaultLowInputLatency,
		HighInputLatency:  info.DefaultHighInputLatency,
		IsDefaultInput:    sameDevice(info, defaultInput),
	}
}

// sameDevice compares by name and host API, since the library may return a
// fresh DeviceInfo for the default device.
func sameDevice(a, b *portaudio.DeviceInfo) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return a.Name == b.Name && hostName(a) == hostName(b)
}

func hostName(info *portaudio.DeviceInfo) string {
	if info.HostApi == nil {
		return ""
	}
	return info.HostApi.Name
}
