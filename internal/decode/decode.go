// SPDX-License-Identifier: MIT
/*
Package decode turns audio files into mono amplitude buffers for tempo
analysis.

WAV is read with go-audio/wav, MP3 and FLAC with beep. Every format is mixed
down to one channel with samples normalised to [-1, 1]. Tags are read with
dhowden/tag when the container carries them.
*/
package decode

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "tempo/internal/log"
	"tempo/internal/tempo"

	"github.com/pkg/errors"
)

// ErrUnsupportedFormat is returned for files that are not WAV, MP3 or FLAC.
var ErrUnsupportedFormat = errors.New("decode: unsupported audio format")

// Format identifies a container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
)

// Metadata describes a decoded file.
type Metadata struct {
	Format     Format        `json:"format"`
	Channels   int           `json:"channels"`
	SampleRate float64       `json:"sample_rate"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	Duration   time.Duration `json:"duration"`

	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
	Genre  string `json:"genre,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// File decodes the file at path. The format is taken from the extension,
// falling back to the leading magic bytes.
func File(path string) (tempo.Buffer, Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return tempo.Buffer{}, Metadata{}, errors.Wrap(err, "failed to open audio file")
	}
	defer f.Close()

	format := FormatFromPath(path)
	if format == FormatUnknown {
		if format, err = Sniff(f); err != nil {
			return tempo.Buffer{}, Metadata{}, err
		}
	}

	applog.Debugf("Decode: %s as %s", filepath.Base(path), format)
	return Decode(f, format)
}

// Decode reads a whole stream of the given format.
func Decode(r io.ReadSeeker, format Format) (tempo.Buffer, Metadata, error) {
	var (
		buf  tempo.Buffer
		meta Metadata
		err  error
	)
	switch format {
	case FormatWAV:
		buf, meta, err = decodeWAV(r)
	case FormatMP3, FormatFLAC:
		tags := readTags(r)
		buf, meta, err = decodeBeep(r, format)
		meta.Title, meta.Artist, meta.Album = tags.Title, tags.Artist, tags.Album
		meta.Genre, meta.Year = tags.Genre, tags.Year
	default:
		return tempo.Buffer{}, Metadata{}, errors.Wrapf(ErrUnsupportedFormat, "format %q", format)
	}
	if err != nil {
		return tempo.Buffer{}, Metadata{}, err
	}

	meta.Format = format
	meta.SampleRate = buf.SampleRate
	meta.Duration = buf.Duration()
	return buf, meta, nil
}

// FormatFromPath maps a file extension to a Format.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	case ".flac":
		return FormatFLAC
	default:
		return FormatUnknown
	}
}

// Sniff identifies the container from its first bytes and rewinds r.
func Sniff(r io.ReadSeeker) (Format, error) {
	header := make([]byte, 12)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return FormatUnknown, errors.Wrap(err, "failed to read header")
	}
	header = header[:n]
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, errors.Wrap(err, "failed to rewind")
	}

	switch {
	case len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE":
		return FormatWAV, nil
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC, nil
	case bytes.HasPrefix(header, []byte("ID3")):
		return FormatMP3, nil
	case len(header) >= 2 && header[0] == 0xFF && (header[1]&0xF6) == 0xF2:
		return FormatMP3, nil
	default:
		return FormatUnknown, ErrUnsupportedFormat
	}
}
