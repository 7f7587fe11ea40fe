package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/storage"
	"guild-jukebox/pkg/cmd"
)

// replyError tells the user about expected failures and returns nil for
// them. Anything else is returned for the adapter to report.
func replyError(c *Context, err error) error {
	var msg string
	switch {
	case errors.Is(err, player.ErrNothingPlaying):
		msg = "🎵 Nothing is playing."
	case errors.Is(err, player.ErrNotPlaying):
		msg = "🎵 Playback is not running."
	case errors.Is(err, player.ErrNotPaused):
		msg = "🎵 Playback is not paused."
	case errors.Is(err, player.ErrNotConnected):
		msg = "🎵 Error: you need to be in a voice channel."
	case errors.Is(err, player.ErrResolutionFailed):
		msg = fmt.Sprintf("🎵 Error: failed to resolve track: %v", err)
	case errors.Is(err, player.ErrSinkFailure):
		msg = fmt.Sprintf("⚠️ Voice error: %v", err)
	case errors.Is(err, storage.ErrPlaylistNotFound),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, storage.ErrPlaylistFull):
		msg = fmt.Sprintf("📂 %v", err)
	default:
		return err
	}
	return c.Reply.Text(msg)
}

type PlayCommand struct {
	deps *Deps
}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a song or playlist by URL or search terms" }
func (c *PlayCommand) Aliases() []string   { return []string{"p"} }
func (c *PlayCommand) Category() string    { return MusicCategory }

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	if inv.Raw == "" {
		return cc.Reply.Text("🎵 Usage: play <url or search terms>")
	}

	ctrl := c.deps.Players.Get(cc.GuildID)
	if ctrl.State() == player.StateDisconnected && cc.VoiceChannelID == "" {
		return replyError(cc, player.ErrNotConnected)
	}

	res, err := ctrl.Enqueue(ctx, cc.channel(), inv.Raw)
	if err != nil {
		return replyError(cc, err)
	}
	return replyEnqueued(cc, res)
}

// replyEnqueued confirms an enqueue. A single track that started playing is
// announced by the now-playing notification instead.
func replyEnqueued(cc *Context, res player.EnqueueResult) error {
	switch {
	case res.Count() == 0:
		return nil
	case res.Count() == 1 && res.Started:
		return nil
	case res.Count() == 1:
		return cc.Reply.Embed(SongEmbed(res.Tracks[0], res.Position))
	default:
		return cc.Reply.Embed(AddedEmbed(res))
	}
}

type SkipCommand struct {
	deps *Deps
}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip to the next track" }
func (c *SkipCommand) Aliases() []string   { return []string{"next"} }
func (c *SkipCommand) Category() string    { return MusicCategory }

func (c *SkipCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	skipped, err := c.deps.Players.Get(cc.GuildID).Skip(ctx)
	if err != nil && !errors.Is(err, player.ErrSinkFailure) {
		return replyError(cc, err)
	}
	return cc.Reply.Text(fmt.Sprintf("⏭ Skipped **%s**", skipped.Title))
}

type PauseCommand struct {
	deps *Deps
}

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause playback" }
func (c *PauseCommand) Category() string    { return MusicCategory }

func (c *PauseCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	t, err := c.deps.Players.Get(cc.GuildID).Pause(ctx)
	if err != nil {
		return replyError(cc, err)
	}
	return cc.Reply.Text(fmt.Sprintf("⏸ Paused **%s**", t.Title))
}

type ResumeCommand struct {
	deps *Deps
}

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resume paused playback" }
func (c *ResumeCommand) Category() string    { return MusicCategory }

func (c *ResumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	t, err := c.deps.Players.Get(cc.GuildID).Resume(ctx)
	if err != nil {
		return replyError(cc, err)
	}
	return cc.Reply.Text(fmt.Sprintf("▶️ Resumed **%s**", t.Title))
}

type StopCommand struct {
	deps *Deps
}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and clear queue" }
func (c *StopCommand) Aliases() []string   { return []string{"leave"} }
func (c *StopCommand) Category() string    { return MusicCategory }

func (c *StopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	// Stop always clears local state, so a sink error is only worth a log.
	if err := c.deps.Players.Get(cc.GuildID).Stop(ctx); err != nil {
		c.deps.Log.WithError(err).WithField("guild_id", cc.GuildID).Warn("[Command] Stop reported a voice error")
	}
	return cc.Reply.Embed(&discordgo.MessageEmbed{
		Description: "⏹️ Playback Stopped. Queue cleared.",
		Color:       EmbedColor,
	})
}

type QueueCommand struct {
	deps *Deps
}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the queue" }
func (c *QueueCommand) Aliases() []string   { return []string{"q"} }
func (c *QueueCommand) Category() string    { return MusicCategory }

func (c *QueueCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	ctrl, ok := c.deps.Players.Lookup(cc.GuildID)
	if !ok {
		return cc.Reply.Embed(QueueEmbed(player.Status{}))
	}
	return cc.Reply.Embed(QueueEmbed(ctrl.Status()))
}

type NowPlayingCommand struct {
	deps *Deps
}

func (c *NowPlayingCommand) Name() string        { return "np" }
func (c *NowPlayingCommand) Description() string { return "Show the current track" }
func (c *NowPlayingCommand) Aliases() []string   { return []string{"nowplaying"} }
func (c *NowPlayingCommand) Category() string    { return MusicCategory }

func (c *NowPlayingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	ctrl, ok := c.deps.Players.Lookup(cc.GuildID)
	if !ok {
		return replyError(cc, player.ErrNothingPlaying)
	}
	t, ok := ctrl.NowPlaying()
	if !ok {
		return replyError(cc, player.ErrNothingPlaying)
	}
	return cc.Reply.Embed(SongEmbed(t, 0))
}
