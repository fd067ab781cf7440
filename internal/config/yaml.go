// SPDX-License-Identifier: MIT
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"tempo/internal/analysis"
	applog "tempo/internal/log"
	"tempo/internal/tempo"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Hardware and processing limits.
const (
	MinDeviceID     = -1 // -1 selects the system default device.
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
)

// Config is the application configuration, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // debug, info, warn or error.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Batch tempo estimation.
	Stream    StreamConfig    `yaml:"stream"`    // Streaming beat detection.
	Audio     AudioConfig     `yaml:"audio"`     // Live input.
	Transport TransportConfig `yaml:"transport"` // Beat delivery.
}

// AnalysisConfig holds the batch estimator settings.
type AnalysisConfig struct {
	PeakThreshold float64       `yaml:"peak_threshold"` // Amplitude a sample must exceed.
	Refractory    time.Duration `yaml:"refractory"`     // Minimum spacing between peaks.
	Window        int           `yaml:"window"`         // Peaks per interval window.
	Strategy      string        `yaml:"strategy"`       // dominant, mean or weighted.
}

// StreamConfig holds the spectral frontend and detector settings.
type StreamConfig struct {
	FFTSize           int     `yaml:"fft_size"`           // Points per FFT.
	FrameRate         float64 `yaml:"frame_rate"`         // Frames per second.
	EnergyThreshold   float64 `yaml:"energy_threshold"`   // Mean byte energy a frame must exceed.
	Mode              string  `yaml:"mode"`               // fixed or relative.
	Multiplier        float64 `yaml:"multiplier"`         // Relative mode ratio.
	Average           float64 `yaml:"average"`            // Running average smoothing.
	SpectrumSmoothing float64 `yaml:"spectrum_smoothing"` // Temporal smoothing of bins.
	Window            string  `yaml:"window"`             // FFT window function.
	MinDecibels       float64 `yaml:"min_decibels"`
	MaxDecibels       float64 `yaml:"max_decibels"`
	Realtime          bool    `yaml:"realtime"`   // Replay files at the frame rate.
	QueueSize         int     `yaml:"queue_size"` // Buffered frames between producer and detector.
}

// AudioConfig holds live input settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels, mixed to mono.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low latency settings.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate level in [0, 1], 0 disables.
}

// TransportConfig holds beat delivery settings.
type TransportConfig struct {
	LogBeats         bool          `yaml:"log_beats"`          // Log every beat.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve beats on /beats.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address.
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send beat packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // host:port.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Heartbeat interval.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Analysis: AnalysisConfig{
			PeakThreshold: tempo.DefaultThreshold,
			Refractory:    tempo.DefaultRefractory,
			Window:        tempo.DefaultWindow,
			Strategy:      tempo.DefaultStrategy.String(),
		},
		Stream: StreamConfig{
			FFTSize:           analysis.DefaultFFTSize,
			FrameRate:         analysis.DefaultFrameRate,
			EnergyThreshold:   analysis.DefaultThreshold,
			Mode:              analysis.ModeFixed.String(),
			Multiplier:        analysis.DefaultMultiplier,
			Average:           analysis.DefaultAverage,
			SpectrumSmoothing: analysis.DefaultSmoothing,
			Window:            analysis.Blackman.String(),
			MinDecibels:       analysis.DefaultMinDecibels,
			MaxDecibels:       analysis.DefaultMaxDecibels,
			Realtime:          true,
			QueueSize:         16,
		},
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			LowLatency:      false,
			InputChannels:   1,
			GateThreshold:   0,
		},
		Transport: TransportConfig{
			LogBeats:         true,
			WebSocketEnabled: false,
			WebSocketAddress: "127.0.0.1:8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  time.Second,
		},
	}
}

// DefaultCandidates are searched, in order, when LoadConfig is given no path.
var DefaultCandidates = []string{"tempo.yaml", "config.yaml"}

// LoadConfig loads configuration from the YAML file at path. If path is empty
// it searches DefaultCandidates and falls back to the built-in defaults. The
// TEMPO_* environment overrides are applied last, then the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range DefaultCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
		applog.Debugf("Config: loaded %s", path)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and returns an error wrapping
// ErrInvalidConfig for the first problem found.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return errors.Wrapf(ErrInvalidConfig, "log_level %q is not recognised", c.LogLevel)
	}
	if _, err := c.TempoOptions(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "analysis: %v", err)
	}
	if _, err := c.SpectrumOptions(c.Audio.SampleRate); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "stream: %v", err)
	}
	if _, err := c.DetectorOptions(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "stream: %v", err)
	}
	if c.Stream.QueueSize < 1 {
		return errors.Wrapf(ErrInvalidConfig, "stream.queue_size must be at least 1, got %d", c.Stream.QueueSize)
	}

	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return errors.Wrapf(ErrInvalidConfig, "audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return errors.Wrapf(ErrInvalidConfig, "audio.sample_rate must be in [%d, %d], got %v", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		return errors.Wrapf(ErrInvalidConfig, "audio.frames_per_buffer must be in [1, %d], got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.InputChannels < 1 {
		return errors.Wrapf(ErrInvalidConfig, "audio.input_channels must be at least 1, got %d", a.InputChannels)
	}
	if !(a.GateThreshold >= 0 && a.GateThreshold <= 1) {
		return errors.Wrapf(ErrInvalidConfig, "audio.gate_threshold must be in [0, 1], got %v", a.GateThreshold)
	}

	t := c.Transport
	if t.WebSocketEnabled && t.WebSocketAddress == "" {
		return errors.Wrap(ErrInvalidConfig, "transport.websocket_address must be set when the WebSocket transport is enabled")
	}
	if t.UDPEnabled {
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return errors.Wrapf(ErrInvalidConfig, "transport.udp_target_address %q appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return errors.Wrap(ErrInvalidConfig, "transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	return nil
}

// TempoOptions converts the analysis section into tempo.Options.
func (c *Config) TempoOptions() (tempo.Options, error) {
	strategy, err := tempo.ParseStrategy(c.Analysis.Strategy)
	if err != nil {
		return tempo.Options{}, err
	}
	opts := tempo.Options{
		Threshold:  c.Analysis.PeakThreshold,
		Refractory: c.Analysis.Refractory,
		Window:     c.Analysis.Window,
		Strategy:   strategy,
	}
	return opts, opts.Validate()
}

// SpectrumOptions converts the stream section into analysis.SpectrumOptions
// for input at sampleRate.
func (c *Config) SpectrumOptions(sampleRate float64) (analysis.SpectrumOptions, error) {
	window, err := analysis.ParseWindowFunc(c.Stream.Window)
	if err != nil {
		return analysis.SpectrumOptions{}, err
	}
	opts := analysis.SpectrumOptions{
		FFTSize:     c.Stream.FFTSize,
		SampleRate:  sampleRate,
		Smoothing:   c.Stream.SpectrumSmoothing,
		MinDecibels: c.Stream.MinDecibels,
		MaxDecibels: c.Stream.MaxDecibels,
		Window:      window,
	}
	return opts, opts.Validate()
}

// DetectorOptions converts the stream section into analysis.Options. The
// caller sets Layout and OnBeat.
func (c *Config) DetectorOptions() (analysis.Options, error) {
	mode, err := analysis.ParseMode(c.Stream.Mode)
	if err != nil {
		return analysis.Options{}, err
	}
	opts := analysis.Options{
		Threshold:  c.Stream.EnergyThreshold,
		Mode:       mode,
		Multiplier: c.Stream.Multiplier,
		Smoothing:  c.Stream.Average,
		FrameRate:  c.Stream.FrameRate,
	}
	return opts, opts.Validate()
}

// applyEnvOverrides applies TEMPO_* environment variables on top of the
// loaded values. Unparseable values are logged and ignored.
func (c *Config) applyEnvOverrides() {
	envString("TEMPO_LOG_LEVEL", &c.LogLevel)

	envFloat("TEMPO_PEAK_THRESHOLD", &c.Analysis.PeakThreshold)
	envDuration("TEMPO_REFRACTORY", &c.Analysis.Refractory)
	envInt("TEMPO_WINDOW", &c.Analysis.Window)
	envString("TEMPO_STRATEGY", &c.Analysis.Strategy)

	envFloat("TEMPO_ENERGY_THRESHOLD", &c.Stream.EnergyThreshold)
	envString("TEMPO_MODE", &c.Stream.Mode)
	envInt("TEMPO_FFT_SIZE", &c.Stream.FFTSize)

	envInt("TEMPO_INPUT_DEVICE", &c.Audio.InputDevice)
	envFloat("TEMPO_SAMPLE_RATE", &c.Audio.SampleRate)

	envBool("TEMPO_WS_ENABLED", &c.Transport.WebSocketEnabled)
	envString("TEMPO_WS_ADDRESS", &c.Transport.WebSocketAddress)
	envBool("TEMPO_UDP_ENABLED", &c.Transport.UDPEnabled)
	envString("TEMPO_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	envDuration("TEMPO_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("Config: %s=%q from env", key, val)
	}
}

func envBool(key string, dst *bool) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			applog.Warnf("Config: ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = b
		applog.Debugf("Config: %s=%v from env", key, b)
	}
}

func envInt(key string, dst *int) {
	if val, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			applog.Warnf("Config: ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = n
		applog.Debugf("Config: %s=%d from env", key, n)
	}
}

func envFloat(key string, dst *float64) {
	if val, ok := os.LookupEnv(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(f) {
			applog.Warnf("Config: ignoring %s=%q", key, val)
			return
		}
		*dst = f
		applog.Debugf("Config: %s=%v from env", key, f)
	}
}

func envDuration(key string, dst *time.Duration) {
	if val, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			applog.Warnf("Config: ignoring %s=%q: %v", key, val, err)
			return
		}
		*dst = d
		applog.Debugf("Config: %s=%s from env", key, d)
	}
}
