// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tempo/internal/analysis"
	"tempo/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultDebounce merges beats from consecutive loud frames into one
	// onset for the live tempo readout.
	DefaultDebounce = 150 * time.Millisecond

	maxIntervals = 16
	barWidth     = 32
	flashTicks   = 4
	tickInterval = 50 * time.Millisecond
)

// BeatMsg delivers a detected beat to the monitor.
type BeatMsg analysis.Beat

// DoneMsg tells the monitor that the frame source has finished.
type DoneMsg struct {
	Err error
}

type tickMsg time.Time

// MonitorModel shows detected beats as they arrive.
type MonitorModel struct {
	title    string
	debounce time.Duration

	beats     uint64
	last      analysis.Beat
	hasLast   bool
	lastOnset time.Duration
	intervals []float64
	flash     int

	width int
	done  bool
	err   error
}

// NewMonitorModel returns a monitor for the named source. A non-positive
// debounce uses DefaultDebounce.
func NewMonitorModel(title string, debounce time.Duration) MonitorModel {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return MonitorModel{title: title, debounce: debounce, width: 80}
}

func (m MonitorModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}

	case BeatMsg:
		m.observe(analysis.Beat(msg))

	case DoneMsg:
		m.done = true
		m.err = msg.Err

	case tickMsg:
		if m.flash > 0 {
			m.flash--
		}
		return m, tick()
	}
	return m, nil
}

func (m *MonitorModel) observe(b analysis.Beat) {
	m.beats++
	m.flash = flashTicks

	if m.hasLast {
		gap := b.Offset - m.lastOnset
		if gap < m.debounce {
			m.last = b
			return
		}
		m.intervals = append(m.intervals, gap.Seconds())
		if len(m.intervals) > maxIntervals {
			m.intervals = m.intervals[len(m.intervals)-maxIntervals:]
		}
	}
	m.last = b
	m.hasLast = true
	m.lastOnset = b.Offset
}

// Beats returns the number of beats received.
func (m MonitorModel) Beats() uint64 {
	return m.beats
}

// Tempo returns the live BPM estimate from the median of recent onset
// intervals, or 0 before two onsets have been seen.
func (m MonitorModel) Tempo() int {
	if len(m.intervals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), m.intervals...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if median <= 0 {
		return 0
	}
	return int(math.Round(60 / median))
}

func (m MonitorModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	indicator := dimStyle.Render("  ●  ")
	if m.flash > 0 {
		indicator = beatStyle.Render("BEAT")
	}
	tempo := "--"
	if bpm := m.Tempo(); bpm > 0 {
		tempo = fmt.Sprintf("%d", bpm)
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		indicator,
		infoStyle.Render(fmt.Sprintf("  Beats: %d   Tempo: %s BPM", m.beats, tempo)),
	))
	sb.WriteString("\n\n")

	if m.hasLast {
		fmt.Fprintf(&sb, "%-8s %s %6.1f\n", "energy", bar(m.last.Energy, m.barWidth()), m.last.Energy)
		for _, band := range m.last.Bands {
			fmt.Fprintf(&sb, "%-8s %s %6.1f\n", band.Name, bar(band.Energy, m.barWidth()), band.Energy)
		}
		fmt.Fprintf(&sb, "\nLast beat: frame %d at %s\n", m.last.Frame, m.last.Offset.Round(time.Millisecond))
	} else {
		sb.WriteString(dimStyle.Render("Waiting for beats..."))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		sb.WriteString("\n")
	case m.done:
		sb.WriteString(highlightStyle.Render("Source finished."))
		sb.WriteString("\n")
	}
	sb.WriteString(infoStyle.Render("q: Quit"))
	return sb.String()
}

func (m MonitorModel) barWidth() int {
	w := m.width - 20
	if w > barWidth || w <= 0 {
		return barWidth
	}
	return w
}

// bar renders level on the byte scale as a horizontal bar of width cells.
func bar(level float64, width int) string {
	filled := int(math.Round(level / 255 * float64(width)))
	filled = max(0, min(width, filled))
	return highlightStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", width-filled))
}

// ProgramTransport forwards beats to a running bubbletea program.
type ProgramTransport struct {
	program *tea.Program
}

// NewProgramTransport returns a transport that sends BeatMsg to p.
func NewProgramTransport(p *tea.Program) *ProgramTransport {
	return &ProgramTransport{program: p}
}

// Send forwards analysis.Beat values; anything else is ignored.
func (t *ProgramTransport) Send(data any) error {
	if b, ok := data.(analysis.Beat); ok {
		t.program.Send(BeatMsg(b))
	}
	return nil
}

// Close is a no-op; the program is owned by the caller.
func (t *ProgramTransport) Close() error {
	return nil
}

var _ transport.Transport = (*ProgramTransport)(nil)
