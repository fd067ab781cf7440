// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tempo/internal/analysis"
	"tempo/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000, IsDefaultInput: true},
		{ID: 2, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
	}
}

func newTestDeviceList(t *testing.T) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return testDevices(), nil }

	msg := m.Init()()
	model, _ := m.Update(msg)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return model.(DeviceListModel)
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m
}

func TestDeviceListStartsOnDefaultInput(t *testing.T) {
	m := newTestDeviceList(t)
	if m.selectedIndex != 1 {
		t.Errorf("selectedIndex = %d, want default input at 1", m.selectedIndex)
	}
	view := m.View()
	for _, want := range []string{"Audio Device List", "Microphone", "(Input/Output)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDeviceListSelection(t *testing.T) {
	m := newTestDeviceList(t)

	// Interface defaults to 44100, one step down picks 48000.
	final := press(m, "down", "enter", "down", "enter").(DeviceListModel)
	sel, ok := final.Selection()
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.DeviceID != 2 || sel.SampleRate != 48000 {
		t.Errorf("selection = %+v, want device 2 at 48000", sel)
	}
	if !strings.Contains(sel.YAML(), "input_device: 2") {
		t.Errorf("YAML() = %q", sel.YAML())
	}
}

func TestDeviceListSkipsOutputOnly(t *testing.T) {
	m := newTestDeviceList(t)
	got := press(m, "up", "enter").(DeviceListModel)
	if got.activeScreen != ListScreen {
		t.Error("output-only device opened the configuration screen")
	}
}

func TestDeviceListBackAndQuit(t *testing.T) {
	m := newTestDeviceList(t)
	got := press(m, "enter", "esc").(DeviceListModel)
	if got.activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}

	_, cmd := got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
	if _, ok := got.Selection(); ok {
		t.Error("no selection expected after quitting")
	}
}

func TestDeviceListFetchError(t *testing.T) {
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return nil, errors.New("no host") }

	model, _ := m.Update(m.Init()())
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("view does not show error: %q", model.View())
	}
}

func beatAt(frame uint64, offset time.Duration) BeatMsg {
	return BeatMsg(analysis.Beat{
		Frame:  frame,
		Offset: offset,
		Energy: 200,
		Bands:  []analysis.BandEnergy{{Name: "bass", Energy: 180}},
	})
}

func TestMonitorTempo(t *testing.T) {
	var model tea.Model = NewMonitorModel("test", 0)

	// 120 BPM with a second loud frame straight after each onset.
	for i := range 8 {
		onset := time.Duration(i) * 500 * time.Millisecond
		model, _ = model.Update(beatAt(uint64(i*30), onset))
		model, _ = model.Update(beatAt(uint64(i*30+1), onset+16*time.Millisecond))
	}

	m := model.(MonitorModel)
	if m.Beats() != 16 {
		t.Errorf("Beats() = %d, want 16", m.Beats())
	}
	if m.Tempo() != 120 {
		t.Errorf("Tempo() = %d, want 120", m.Tempo())
	}
	view := m.View()
	for _, want := range []string{"Beats: 16", "120 BPM", "bass"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestMonitorWaitingAndDone(t *testing.T) {
	m := NewMonitorModel("idle", time.Millisecond)
	if m.Tempo() != 0 {
		t.Errorf("Tempo() before beats = %d, want 0", m.Tempo())
	}
	if !strings.Contains(m.View(), "Waiting for beats") {
		t.Error("expected waiting message")
	}

	model, _ := m.Update(DoneMsg{Err: errors.New("device lost")})
	if !strings.Contains(model.View(), "device lost") {
		t.Error("expected error in view")
	}
}

func TestMonitorFlashDecays(t *testing.T) {
	var model tea.Model = NewMonitorModel("flash", 0)
	model, _ = model.Update(beatAt(0, 0))
	if !strings.Contains(model.View(), "BEAT") {
		t.Fatal("expected beat indicator right after a beat")
	}
	for range flashTicks {
		model, _ = model.Update(tickMsg(time.Now()))
	}
	if strings.Contains(model.View(), "BEAT") {
		t.Error("beat indicator still lit after flash decayed")
	}
}

func TestBarBounds(t *testing.T) {
	for _, level := range []float64{-10, 0, 128, 255, 400} {
		if got := bar(level, 10); strings.Count(got, "█")+strings.Count(got, "░") != 10 {
			t.Errorf("bar(%v) has wrong width: %q", level, got)
		}
	}
}
