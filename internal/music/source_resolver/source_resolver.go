package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/music/sources"
	"guild-jukebox/pkg/retrylimit"
)

// SourceResolver picks the source for a query and retries transient
// upstream failures. It implements player.Resolver.
type SourceResolver struct {
	sources     []sources.Source
	limiter     *retrylimit.AdaptiveLimiter
	maxAttempts int
	log         logrus.FieldLogger
}

// New returns a resolver that tries srcs in order; the first whose Match
// accepts the input handles it. limiter may be nil.
func New(limiter *retrylimit.AdaptiveLimiter, maxAttempts int, log logrus.FieldLogger, srcs ...sources.Source) *SourceResolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &SourceResolver{
		sources:     srcs,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

func (r *SourceResolver) Resolve(ctx context.Context, query string) ([]player.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", player.ErrResolutionFailed)
	}

	src, err := r.pick(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", player.ErrResolutionFailed, err)
	}

	var tracks []player.Track
	err = r.retry(ctx, func() error {
		var err error
		tracks, err = src.Resolve(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", player.ErrResolutionFailed, src.SourceName(), unwrapFatal(err))
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s: %w", player.ErrResolutionFailed, src.SourceName(), sources.ErrNoMatch)
	}

	r.log.WithFields(logrus.Fields{
		"source": src.SourceName(),
		"tracks": len(tracks),
	}).Debug("Resolved query")
	return tracks, nil
}

// StreamURL returns what ffmpeg should open for track. Sources that know
// better (page-based ones) are asked first; otherwise the track URL is
// already the media location.
func (r *SourceResolver) StreamURL(ctx context.Context, track player.Track) (string, error) {
	for _, src := range r.sources {
		streamer, ok := src.(sources.Streamer)
		if !ok || !src.Match(track.URL) {
			continue
		}
		var link string
		err := r.retry(ctx, func() error {
			var err error
			link, err = streamer.StreamURL(ctx, track)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("%s stream url: %w", src.SourceName(), unwrapFatal(err))
		}
		return link, nil
	}
	return track.URL, nil
}

func (r *SourceResolver) pick(query string) (sources.Source, error) {
	for _, src := range r.sources {
		if src.Match(query) {
			return src, nil
		}
	}
	if sources.IsURL(query) {
		return nil, fmt.Errorf("%w: no source accepts %s", sources.ErrUnsupported, query)
	}
	return nil, fmt.Errorf("%w: search is not available", sources.ErrUnsupported)
}

func (r *SourceResolver) retry(ctx context.Context, fn func() error) error {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.MaxAttempts = r.maxAttempts
	cfg.Logger = r.log
	return retrylimit.WithRetryConfig(ctx, fn, r.limiter, cfg)
}

func unwrapFatal(err error) error {
	var fatal *retrylimit.FatalError
	if errors.As(err, &fatal) {
		return fatal.Err
	}
	return err
}
