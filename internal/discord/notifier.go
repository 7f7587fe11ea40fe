package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/command"
	"guild-jukebox/internal/music/player"
)

// EmbedSender posts an embed to a text channel.
type EmbedSender func(channelID string, embed *discordgo.MessageEmbed) error

// SessionSender sends embeds through session.
func SessionSender(session *discordgo.Session) EmbedSender {
	return func(channelID string, embed *discordgo.MessageEmbed) error {
		_, err := session.ChannelMessageSendEmbed(channelID, embed)
		return err
	}
}

// Notifier posts playback events to the text channel a guild's playback was
// started from. Commands answer their own invoker, so only events nobody
// asked for directly are posted.
type Notifier struct {
	send EmbedSender
	log  logrus.FieldLogger
}

func NewNotifier(send EmbedSender, log logrus.FieldLogger) *Notifier {
	return &Notifier{send: send, log: log}
}

// Run posts events until ctx is done or events is closed.
func (n *Notifier) Run(ctx context.Context, events <-chan player.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			n.post(e)
		}
	}
}

func (n *Notifier) post(e player.Event) {
	embed, ok := Render(e)
	if !ok || e.Channel.TextChannelID == "" {
		return
	}
	if err := n.send(e.Channel.TextChannelID, embed); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"guild_id": e.GuildID,
			"event":    e.Kind,
		}).Warn("[Notifier] Failed to post event")
	}
}

// Render turns an event into a chat embed. ok is false for events that are
// not posted.
func Render(e player.Event) (embed *discordgo.MessageEmbed, ok bool) {
	switch e.Kind {
	case player.EventNowPlaying:
		if e.Track == nil {
			return nil, false
		}
		return command.SongEmbed(*e.Track, 0), true

	case player.EventWarning:
		desc := "Playback problem"
		if e.Track != nil {
			desc = fmt.Sprintf("Skipping **%s**", e.Track.Title)
		}
		if e.Err != nil {
			desc += fmt.Sprintf(": %v", e.Err)
		}
		return &discordgo.MessageEmbed{
			Title:       "⚠️ Warning",
			Description: desc,
			Color:       command.EmbedColor,
		}, true

	case player.EventQueueEmpty:
		return &discordgo.MessageEmbed{
			Description: "⏹ Queue is empty, leaving voice channel.",
			Color:       command.EmbedColor,
		}, true
	}
	return nil, false
}
