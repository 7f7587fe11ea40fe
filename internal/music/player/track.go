package player

import (
	"fmt"
	"strings"
)

const (
	UnknownTitle   = "Unknown Title"
	UnknownChannel = "Unknown Channel"
)

// Track is a resolved, playable unit of audio. It is a plain value and is
// safe to copy.
type Track struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  int    `json:"duration"` // seconds, 0 if unknown
	Channel   string `json:"channel"`
}

// Normalize fills in the placeholder title and channel and clamps a negative
// duration to zero.
func (t Track) Normalize() Track {
	t.URL = strings.TrimSpace(t.URL)
	if strings.TrimSpace(t.Title) == "" {
		t.Title = UnknownTitle
	}
	if strings.TrimSpace(t.Channel) == "" {
		t.Channel = UnknownChannel
	}
	if t.Duration < 0 {
		t.Duration = 0
	}
	return t
}

// FormattedDuration renders the duration as m:ss. An unknown duration renders
// as an empty string.
func (t Track) FormattedDuration() string {
	if t.Duration <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", t.Duration/60, t.Duration%60)
}

func (t Track) String() string {
	if d := t.FormattedDuration(); d != "" {
		return fmt.Sprintf("%s (%s)", t.Title, d)
	}
	return t.Title
}

// Titles returns the titles of tracks in order.
func Titles(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}
