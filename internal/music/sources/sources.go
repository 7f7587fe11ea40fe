package sources

import (
	"context"
	"errors"
	"strings"

	"guild-jukebox/internal/music/player"
)

const (
	SourceYouTube = "youtube"
	SourceRadio   = "radio"
)

var (
	ErrNoMatch     = errors.New("nothing found")
	ErrUnsupported = errors.New("unsupported input")
)

// Source turns inputs it recognizes into tracks.
type Source interface {
	// Match checks if this source can handle the given input.
	Match(input string) bool

	// Resolve turns an input into one or more playable tracks.
	Resolve(ctx context.Context, input string) ([]player.Track, error)

	// SourceName returns the identifier ("youtube", "radio", ...).
	SourceName() string
}

// Streamer finds the media location ffmpeg should read for a track. Track
// URLs of page-based sources point at the page, not the media, and media
// links often expire, so this runs right before playback.
type Streamer interface {
	StreamURL(ctx context.Context, track player.Track) (string, error)
}

func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
