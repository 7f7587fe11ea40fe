package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/player"
	"guild-jukebox/pkg/cmd"
)

type echoCommand struct {
	got *cmd.Invocation
	err error
}

func (e *echoCommand) Name() string        { return "echo" }
func (e *echoCommand) Description() string { return "echo" }

func (e *echoCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	e.got = inv
	return e.err
}

func TestDispatch(t *testing.T) {
	echo := &echoCommand{}
	reg := cmd.NewRegistry()
	reg.Register(echo)
	b := &Bot{commands: reg, prefix: "!", log: testLogger()}

	cc := &command.Context{GuildID: "g1"}
	handled, err := b.dispatch(context.Background(), "!ECHO hello there", cc)
	if !handled || err != nil {
		t.Fatalf("handled=%v err=%v", handled, err)
	}
	if echo.got.Raw != "hello there" || echo.got.Data != cc {
		t.Errorf("invocation = %+v", echo.got)
	}

	for _, line := range []string{"echo hi", "!unknown", "just chatting"} {
		if handled, _ := b.dispatch(context.Background(), line, cc); handled {
			t.Errorf("%q was handled", line)
		}
	}

	echo.err = errors.New("boom")
	if _, err := b.dispatch(context.Background(), "!echo", cc); err == nil {
		t.Error("command error swallowed")
	}
}

func TestRender(t *testing.T) {
	a := player.Track{URL: "https://www.youtube.com/watch?v=a", Title: "A", Duration: 61, Channel: "X"}

	e, ok := Render(player.Event{Kind: player.EventNowPlaying, Track: &a})
	if !ok || e.Title != "A" || e.Footer.Text != "Now playing" {
		t.Errorf("now playing = %+v", e)
	}

	e, ok = Render(player.Event{Kind: player.EventWarning, Track: &a, Err: player.ErrSinkFailure})
	if !ok || !strings.Contains(e.Description, "Skipping **A**: voice sink failure") {
		t.Errorf("warning = %+v", e)
	}

	if e, ok = Render(player.Event{Kind: player.EventQueueEmpty}); !ok || !strings.Contains(e.Description, "leaving voice channel") {
		t.Errorf("queue empty = %+v", e)
	}

	for _, kind := range []player.EventKind{player.EventTracksAdded, player.EventPaused, player.EventStopped, player.EventSkipped} {
		if _, ok := Render(player.Event{Kind: kind}); ok {
			t.Errorf("%s should not be posted", kind)
		}
	}
}

func TestNotifier_PostsToTextChannel(t *testing.T) {
	type post struct {
		channel string
		embed   *discordgo.MessageEmbed
	}
	var posts []post
	n := NewNotifier(func(channelID string, embed *discordgo.MessageEmbed) error {
		posts = append(posts, post{channelID, embed})
		return nil
	}, testLogger())

	events := make(chan player.Event, 4)
	events <- player.Event{Kind: player.EventQueueEmpty, Channel: player.ChannelContext{TextChannelID: "text"}}
	events <- player.Event{Kind: player.EventQueueEmpty}
	events <- player.Event{Kind: player.EventPaused, Channel: player.ChannelContext{TextChannelID: "text"}}
	close(events)

	n.Run(context.Background(), events)

	if len(posts) != 1 || posts[0].channel != "text" {
		t.Errorf("posts = %+v", posts)
	}
}
