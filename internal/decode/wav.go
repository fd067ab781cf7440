// SPDX-License-Identifier: MIT
package decode

import (
	"io"

	"tempo/internal/tempo"

	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

func decodeWAV(r io.ReadSeeker) (tempo.Buffer, Metadata, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return tempo.Buffer{}, Metadata{}, errors.Wrap(ErrUnsupportedFormat, "not a valid WAV file")
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return tempo.Buffer{}, Metadata{}, errors.Wrap(err, "failed to read WAV samples")
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(d.BitDepth)
	if depth < 8 || depth > 32 {
		return tempo.Buffer{}, Metadata{}, errors.Wrapf(ErrUnsupportedFormat, "bit depth %d", depth)
	}

	// 8-bit PCM is unsigned, every other depth is signed.
	offset, scale := 0.0, float64(int64(1)<<(depth-1))
	if depth == 8 {
		offset = 128
	}

	frames := len(pcm.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += (float64(pcm.Data[i*channels+c]) - offset) / scale
		}
		samples[i] = clamp(sum / float64(channels))
	}

	buf := tempo.Buffer{Samples: samples, SampleRate: float64(d.SampleRate)}
	return buf, Metadata{Channels: channels, BitDepth: depth}, nil
}

func clamp(v float64) float64 {
	return max(-1, min(1, v))
}
