// SPDX-License-Identifier: MIT
package audio

import (
	"os"

	"tempo/pkg/synth"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// WAV output limits.
const (
	DefaultBitDepth = 16
	wavFormatPCM    = 1
)

// WriteWAV encodes mono samples in [-1, 1] as a PCM WAV file. Supported bit
// depths are 16, 24 and 32.
func WriteWAV(path string, samples []float64, sampleRate, bitDepth int) (err error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return errors.Errorf("unsupported bit depth %d", bitDepth)
	}
	if sampleRate <= 0 {
		return errors.Errorf("invalid sample rate %d", sampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create WAV file")
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "failed to close WAV file")
		}
	}()

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           synth.ToInt(samples, bitDepth),
		SourceBitDepth: bitDepth,
	}
	if err := encoder.Write(buf); err != nil {
		return errors.Wrap(err, "failed to write WAV samples")
	}
	if err := encoder.Close(); err != nil {
		return errors.Wrap(err, "failed to finalise WAV file")
	}
	return nil
}

// WriteClickTrack writes a metronome at bpm lasting seconds to path.
func WriteClickTrack(path string, bpm, seconds float64, sampleRate int) error {
	if !(bpm > 0) {
		return errors.Errorf("bpm must be positive, got %v", bpm)
	}
	if !(seconds > 0) {
		return errors.Errorf("duration must be positive, got %v", seconds)
	}
	return WriteWAV(path, synth.ClickTrack(bpm, seconds, float64(sampleRate)), sampleRate, DefaultBitDepth)
}
