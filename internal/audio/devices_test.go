// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

var (
	fakeMic = &portaudio.DeviceInfo{
		Name:                    "USB Microphone",
		MaxInputChannels:        1,
		DefaultSampleRate:       48000,
		DefaultLowInputLatency:  5 * time.Millisecond,
		DefaultHighInputLatency: 20 * time.Millisecond,
		HostApi:                 &portaudio.HostApiInfo{Name: "ALSA"},
	}
	fakeSpeakers = &portaudio.DeviceInfo{
		Name:              "Speakers",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
		HostApi:           &portaudio.HostApiInfo{Name: "ALSA"},
	}
	fakeInterface = &portaudio.DeviceInfo{
		Name:              "Audio Interface",
		MaxInputChannels:  2,
		MaxOutputChannels: 2,
		DefaultSampleRate: 96000,
	}
)

// withFakeDevices replaces the PortAudio device queries for one test.
func withFakeDevices(t *testing.T, devices []*portaudio.DeviceInfo, defaultInput *portaudio.DeviceInfo) {
	t.Helper()
	origDevices, origDefault := paLibDevicesFunc, paLibDefaultInputDeviceFunc
	t.Cleanup(func() {
		paLibDevicesFunc = origDevices
		paLibDefaultInputDeviceFunc = origDefault
	})

	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) { return devices, nil }
	paLibDefaultInputDeviceFunc = func() (*portaudio.DeviceInfo, error) {
		if defaultInput == nil {
			return nil, fmt.Errorf("no default input")
		}
		return defaultInput, nil
	}
}

func TestHostDevices(t *testing.T) {
	withFakeDevices(t, []*portaudio.DeviceInfo{fakeMic, fakeSpeakers, fakeInterface}, fakeMic)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(devices))
	}
	for i, d := range devices {
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
	}

	mic := devices[0]
	if !mic.IsDefaultInput || mic.HostAPI != "ALSA" || mic.LowInputLatency != 5*time.Millisecond {
		t.Errorf("unexpected microphone: %+v", mic)
	}
	if devices[1].IsDefaultInput || devices[2].IsDefaultInput {
		t.Error("only the microphone should be the default input")
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	orig := paDevicesFunc
	defer func() { paDevicesFunc = orig }()
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("mock error")
	}

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
}

func TestInputDevice(t *testing.T) {
	withFakeDevices(t, []*portaudio.DeviceInfo{fakeMic, fakeSpeakers, fakeInterface}, fakeInterface)

	if dev, err := InputDevice(-1); err != nil || dev != fakeInterface {
		t.Errorf("InputDevice(-1) = (%v, %v), want the default input", dev, err)
	}
	if dev, err := InputDevice(0); err != nil || dev != fakeMic {
		t.Errorf("InputDevice(0) = (%v, %v), want the microphone", dev, err)
	}

	tests := []struct {
		name   string
		id     int
		substr string
	}{
		{"Negative ID", -2, "invalid device ID"},
		{"Too high ID", 13, "invalid device ID"},
		{"Non-input device", 1, "does not support input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InputDevice(tt.id)
			if err == nil {
				t.Errorf("Expected error for ID %d", tt.id)
			} else if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Error = %q, want substring %q", err.Error(), tt.substr)
			}
		})
	}
}

func TestInputDevice_paDefaultInputDeviceError(t *testing.T) {
	withFakeDevices(t, []*portaudio.DeviceInfo{fakeSpeakers}, nil)

	_, err := InputDevice(-1)
	if err == nil || !strings.Contains(err.Error(), "no default input") {
		t.Errorf("expected default input error, got %v", err)
	}
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	if err := Initialize(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	if err := Initialize(); err == nil || !strings.Contains(err.Error(), "mock init error") {
		t.Errorf("expected mock init error, got %v", err)
	}
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	if err := Terminate(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	if err := Terminate(); err == nil || !strings.Contains(err.Error(), "mock term error") {
		t.Errorf("expected mock term error, got %v", err)
	}
}

func TestNilDevices(t *testing.T) {
	withFakeDevices(t, nil, nil)

	devices, err := paDevices()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("expected empty slice, got %v", devices)
	}
}

func TestPortAudioNotInitialized(t *testing.T) {
	orig := paLibDevicesFunc
	defer func() { paLibDevicesFunc = orig }()
	paLibDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return nil, fmt.Errorf("PortAudio not initialized")
	}

	devices, err := paDevices()
	if err == nil || !strings.Contains(err.Error(), "PortAudio not initialized") {
		t.Errorf("expected 'PortAudio not initialized' error, got %v", err)
	}
	if devices != nil {
		t.Errorf("expected devices to be nil on error, got %v", devices)
	}
}

func TestListDevices(t *testing.T) {
	withFakeDevices(t, []*portaudio.DeviceInfo{fakeMic, fakeSpeakers}, fakeMic)

	var out bytes.Buffer
	if err := ListDevices(&out); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{
		"[0] USB Microphone (Input) *default input*",
		"[1] Speakers (Output)",
		"Default sample rate: 48000 Hz",
		"Latency: Low=5.00ms, High=20.00ms",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("listing missing %q:\n%s", want, text)
		}
	}
}

func TestDeviceKind(t *testing.T) {
	tests := []struct {
		in, out int
		want    string
	}{
		{1, 0, "Input"},
		{0, 2, "Output"},
		{2, 2, "Input/Output"},
		{0, 0, ""},
	}
	for _, tt := range tests {
		d := Device{MaxInputChannels: tt.in, MaxOutputChannels: tt.out}
		if got := d.Kind(); got != tt.want {
			t.Errorf("Kind(%d in, %d out) = %q, want %q", tt.in, tt.out, got, tt.want)
		}
		if d.CanCapture() != (tt.in > 0) {
			t.Errorf("CanCapture(%d in) = %v", tt.in, d.CanCapture())
		}
	}
}
