// SPDX-License-Identifier: MIT
package decode

import (
	"io"

	"tempo/internal/tempo"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/pkg/errors"
)

// streamChunk is the number of frames pulled from a beep streamer per call.
const streamChunk = 4096

// nopCloser keeps beep from closing a reader it does not own.
type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func decodeBeep(r io.ReadSeeker, format Format) (tempo.Buffer, Metadata, error) {
	var (
		streamer beep.StreamSeekCloser
		bf       beep.Format
		err      error
	)
	switch format {
	case FormatMP3:
		streamer, bf, err = mp3.Decode(nopCloser{r})
	case FormatFLAC:
		streamer, bf, err = flac.Decode(r)
	}
	if err != nil {
		return tempo.Buffer{}, Metadata{}, errors.Wrapf(err, "failed to decode %s", format)
	}
	defer streamer.Close()

	samples := make([]float64, 0, max(streamer.Len(), 0))
	chunk := make([][2]float64, streamChunk)
	for {
		n, ok := streamer.Stream(chunk)
		for _, frame := range chunk[:n] {
			samples = append(samples, clamp((frame[0]+frame[1])/2))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return tempo.Buffer{}, Metadata{}, errors.Wrapf(err, "failed to read %s samples", format)
	}

	buf := tempo.Buffer{Samples: samples, SampleRate: float64(bf.SampleRate)}
	return buf, Metadata{Channels: bf.NumChannels, BitDepth: bf.Precision * 8}, nil
}
