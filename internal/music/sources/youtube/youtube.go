package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/pkg/retrylimit"
)

// MetadataClient is the subset of the kkdai client the source needs.
type MetadataClient interface {
	GetVideoContext(ctx context.Context, url string) (*kkdai.Video, error)
	GetPlaylistContext(ctx context.Context, url string) (*kkdai.Playlist, error)
	GetStreamURLContext(ctx context.Context, video *kkdai.Video, format *kkdai.Format) (string, error)
}

type YouTubeSource struct {
	client        MetadataClient
	search        Searcher
	playlistLimit int
	log           logrus.FieldLogger
}

// New returns a YouTube source. playlistLimit caps how many entries of a
// playlist are queued; 0 means no cap.
func New(client MetadataClient, search Searcher, playlistLimit int, log logrus.FieldLogger) *YouTubeSource {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &YouTubeSource{
		client:        client,
		search:        search,
		playlistLimit: playlistLimit,
		log:           log,
	}
}

func (y *YouTubeSource) SourceName() string {
	return sources.SourceYouTube
}

// Match accepts YouTube links and free-text queries.
func (y *YouTubeSource) Match(input string) bool {
	input = strings.TrimSpace(input)
	return isYouTubeURL(input) || !sources.IsURL(input)
}

func (y *YouTubeSource) Resolve(ctx context.Context, input string) ([]player.Track, error) {
	input = strings.TrimSpace(input)

	switch {
	case isPlaylistURL(input):
		return y.resolvePlaylist(ctx, input)

	case isYouTubeURL(input):
		t, err := y.resolveVideo(ctx, CleanVideoURL(input))
		if err != nil {
			return nil, err
		}
		return []player.Track{t}, nil

	case sources.IsURL(input):
		return nil, fmt.Errorf("%w: not a YouTube link", sources.ErrUnsupported)

	default:
		id, err := y.search.FirstVideoID(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		t, err := y.resolveVideo(ctx, watchURL(id))
		if err != nil {
			return nil, err
		}
		return []player.Track{t}, nil
	}
}

func (y *YouTubeSource) resolveVideo(ctx context.Context, url string) (player.Track, error) {
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return player.Track{}, classify(fmt.Errorf("get video: %w", err))
	}
	return player.Track{
		URL:       watchURL(video.ID),
		Title:     video.Title,
		Thumbnail: bestThumbnail(video.Thumbnails),
		Duration:  int(video.Duration.Seconds()),
		Channel:   video.Author,
	}.Normalize(), nil
}

func (y *YouTubeSource) resolvePlaylist(ctx context.Context, url string) ([]player.Track, error) {
	pl, err := y.client.GetPlaylistContext(ctx, url)
	if err != nil {
		return nil, classify(fmt.Errorf("get playlist: %w", err))
	}

	tracks := make([]player.Track, 0, len(pl.Videos))
	for _, v := range pl.Videos {
		if v == nil || v.ID == "" {
			continue
		}
		tracks = append(tracks, player.Track{
			URL:       watchURL(v.ID),
			Title:     v.Title,
			Thumbnail: bestThumbnail(v.Thumbnails),
			Duration:  int(v.Duration.Seconds()),
			Channel:   v.Author,
		}.Normalize())
		if y.playlistLimit > 0 && len(tracks) == y.playlistLimit {
			y.log.Infof("[YouTube] Playlist %q truncated to %d tracks", pl.Title, y.playlistLimit)
			break
		}
	}

	if len(tracks) == 0 {
		return nil, retrylimit.Fatal(fmt.Errorf("%w: playlist %q is empty", sources.ErrNoMatch, pl.Title))
	}
	return tracks, nil
}

// StreamURL looks up a direct media link for a YouTube track.
func (y *YouTubeSource) StreamURL(ctx context.Context, track player.Track) (string, error) {
	video, err := y.client.GetVideoContext(ctx, track.URL)
	if err != nil {
		return "", classify(fmt.Errorf("get video: %w", err))
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		formats = video.Formats.WithAudioChannels()
	}
	if len(formats) == 0 {
		return "", retrylimit.Fatal(fmt.Errorf("no audio formats for %s", video.ID))
	}
	formats.Sort()

	link, err := y.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return "", classify(fmt.Errorf("get stream url: %w", err))
	}
	return link, nil
}

// classify marks errors that retrying cannot fix and exposes HTTP status
// codes to the retry loop.
func classify(err error) error {
	var status kkdai.ErrUnexpectedStatusCode
	if errors.As(err, &status) {
		return &retrylimit.StatusError{Code: int(status), Err: err}
	}

	var playability kkdai.ErrPlayabiltyStatus
	var playlistStatus kkdai.ErrPlaylistStatus
	switch {
	case errors.Is(err, sources.ErrNoMatch),
		errors.Is(err, kkdai.ErrVideoPrivate),
		errors.Is(err, kkdai.ErrLoginRequired),
		errors.Is(err, kkdai.ErrNotPlayableInEmbed),
		errors.Is(err, kkdai.ErrInvalidPlaylist),
		errors.Is(err, kkdai.ErrInvalidCharactersInVideoID),
		errors.Is(err, kkdai.ErrVideoIDMinLength),
		errors.As(err, &playability),
		errors.As(err, &playlistStatus):
		return retrylimit.Fatal(err)
	}
	return err
}
