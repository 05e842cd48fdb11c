package playback

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// ReadTitle returns "Artist - Title" from the file's ID3 tag when present and
// the file name without extension otherwise.
func ReadTitle(path string) string {
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return fallback
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Title", "Artist"}})
	if err != nil {
		return fallback
	}
	defer tag.Close()

	title := strings.TrimSpace(tag.Title())
	artist := strings.TrimSpace(tag.Artist())
	switch {
	case title != "" && artist != "":
		return artist + " - " + title
	case title != "":
		return title
	}
	return fallback
}

// NewTrack builds a Track for path with its display title.
func NewTrack(path string) Track {
	return Track{Path: path, Title: ReadTitle(path)}
}
