package radio

import (
	"context"
	"path"
	"strings"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/music/sources"
)

// RadioSource plays any direct audio stream or playlist URL.
type RadioSource struct {
	resolver *RadioResolver
}

func New(resolver *RadioResolver) *RadioSource {
	if resolver == nil {
		resolver = NewRadioResolver(nil)
	}
	return &RadioSource{resolver: resolver}
}

func (r *RadioSource) SourceName() string {
	return sources.SourceRadio
}

// Match accepts any http(s) URL; the probe in Resolve does the real check.
func (r *RadioSource) Match(input string) bool {
	return sources.IsURL(strings.TrimSpace(input))
}

func (r *RadioSource) Resolve(ctx context.Context, input string) ([]player.Track, error) {
	input = strings.TrimSpace(input)

	probe, err := r.resolver.Probe(ctx, input)
	if err != nil {
		return nil, err
	}

	title := probe.Name
	if title == "" {
		title = path.Base(strings.TrimSuffix(strings.SplitN(input, "?", 2)[0], "/"))
	}
	channel := probe.Genre
	if channel == "" {
		channel = "Radio"
	}

	return []player.Track{player.Track{
		URL:     input,
		Title:   title,
		Channel: channel,
	}.Normalize()}, nil
}
