// cmd/jukebox/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/config"
	"guild-jukebox/internal/discord"
	"guild-jukebox/internal/httpapi"
	"guild-jukebox/internal/logging"
	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/music/source_resolver"
	"guild-jukebox/internal/music/sources/radio"
	"guild-jukebox/internal/music/sources/youtube"
	"guild-jukebox/internal/music/stream"
	"guild-jukebox/internal/music/stream/opus"
	"guild-jukebox/internal/storage"
	"guild-jukebox/pkg/cmd"
	"guild-jukebox/pkg/retrylimit"
)

const (
	appName         = "Guild Jukebox"
	radioTimeout    = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("[ERR] %v", err)
	}
	logger.Infof("Starting %s...", appName)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Jukebox stopped with an error")
	}
	logger.Info("Jukebox exited cleanly")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath, cfg.PlaylistLimit, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver := newResolver(cfg, logger)

	commands := cmd.NewRegistry()
	bot, err := discord.New(cfg.DiscordToken, cfg.CommandPrefix, cfg.DiscordGuildBlacklist, commands, logger)
	if err != nil {
		return err
	}

	events := player.NewBroadcaster(logger)
	sinks := discord.SinkFactory(bot.Session(), resolver, &stream.FFmpeg{Path: cfg.FFmpegPath, Log: logger}, opus.StreamToDiscord, logger)
	players := player.NewRegistry(resolver, sinks, events, logger)

	command.Register(commands, &command.Deps{
		Players:   players,
		Playlists: store,
		Resolver:  resolver,
		History:   store,
		Log:       logger,
	})

	notifications := events.Subscribe()
	go discord.NewNotifier(discord.SessionSender(bot.Session()), logger).Run(ctx, notifications)

	errCh := make(chan error, 2)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	if cfg.HTTPEnabled() {
		api := httpapi.New(players, store, resolver, events, logger)
		go func() {
			if err := api.Run(ctx, cfg.HTTPAddr); err != nil {
				errCh <- err
			}
		}()
	} else {
		logger.Info("[HTTP] API server disabled")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case s := <-sig:
		logger.Infof("Received signal %s, shutting down...", s)
	case runErr = <-errCh:
	}

	// Leave voice channels while the session is still open.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := players.StopAll(stopCtx); err != nil {
		logger.WithError(err).Warn("Some guilds did not stop cleanly")
	}

	cancel()
	events.Unsubscribe(notifications)
	return runErr
}

// newResolver wires the sources in match order: YouTube takes its own links
// and free text, radio takes every other URL.
func newResolver(cfg *config.Config, logger logrus.FieldLogger) *source_resolver.SourceResolver {
	ytHTTP := youtube.NewHTTPClient(cfg.ResolverProxy, logger)
	yt := youtube.New(youtube.NewClient(ytHTTP), youtube.NewSearcher(ytHTTP), cfg.YouTubePlaylistLimit, logger)

	r := radio.New(radio.NewRadioResolver(&http.Client{Timeout: radioTimeout}))

	// Back off when YouTube rate limits us, never above the configured rate.
	rps := rate.Limit(cfg.ResolverRPS)
	limiter := retrylimit.NewAdaptiveLimiter(rps, 1, rps, 0.5, 0.5)
	return source_resolver.New(limiter, cfg.ResolverMaxAttempts, logger, yt, r)
}
