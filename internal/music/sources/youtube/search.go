package youtube

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ppalone/ytsearch"

	"guild-jukebox/internal/music/sources"
)

// Searcher finds the video ID of the best match for a free-text query.
type Searcher interface {
	FirstVideoID(ctx context.Context, query string) (string, error)
}

type ytSearcher struct {
	client *ytsearch.Client
}

// NewSearcher returns a Searcher backed by YouTube's web search.
func NewSearcher(httpClient *http.Client) Searcher {
	return &ytSearcher{client: ytsearch.NewClient(httpClient)}
}

func (s *ytSearcher) FirstVideoID(ctx context.Context, query string) (string, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	for _, r := range res.Results {
		if r.VideoID != "" {
			return r.VideoID, nil
		}
	}
	return "", fmt.Errorf("%w: no video for %q", sources.ErrNoMatch, query)
}
