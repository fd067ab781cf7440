// SPDX-License-Identifier: MIT
package decode

import (
	"io"

	applog "tempo/internal/log"

	"github.com/dhowden/tag"
)

type tags struct {
	Title, Artist, Album, Genre string
	Year                        int
}

// readTags reads ID3, Vorbis or MP4 tags and rewinds r. Missing or broken
// tags are not an error.
func readTags(r io.ReadSeeker) tags {
	defer func() {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			applog.Warnf("Decode: failed to rewind after reading tags: %v", err)
		}
	}()

	m, err := tag.ReadFrom(r)
	if err != nil {
		if err != tag.ErrNoTagsFound {
			applog.Debugf("Decode: ignoring unreadable tags: %v", err)
		}
		return tags{}
	}
	return tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
	}
}
