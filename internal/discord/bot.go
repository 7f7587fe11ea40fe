package discord

import (
	"context"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/command"
	"guild-jukebox/pkg/cmd"
)

// Bot is the chat ingress: it turns prefixed messages into commands.
type Bot struct {
	dg        *discordgo.Session
	commands  *cmd.Registry
	prefix    string
	blacklist []string
	log       logrus.FieldLogger
}

// New creates the Discord session without connecting it.
func New(token, prefix string, blacklist []string, commands *cmd.Registry, log logrus.FieldLogger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	b := &Bot{
		dg:        dg,
		commands:  commands,
		prefix:    prefix,
		blacklist: blacklist,
		log:       log,
	}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	return b, nil
}

// Session is the underlying discordgo session, for voice sinks and
// notifications.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Run connects to Discord and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info("[Bot] ❎ Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID)
	}
	b.log.Infof("[Bot] ✅ Discord bot %s is running in %d guild(s)", r.User.Username, len(r.Guilds))
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	b.log.WithField("guild_id", g.ID).Debugf("[Bot] Guild available: %s", g.Name)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !slices.Contains(b.blacklist, guildID) {
		return false
	}
	b.log.WithField("guild_id", guildID).Info("[Bot] Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.WithError(err).WithField("guild_id", guildID).Error("[Bot] Failed to leave guild")
	}
	return true
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	cc := &command.Context{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		Reply:     &channelReplier{s: s, channelID: m.ChannelID},
	}
	if m.GuildID != "" {
		if vs, err := s.State.VoiceState(m.GuildID, m.Author.ID); err == nil && vs != nil {
			cc.VoiceChannelID = vs.ChannelID
		}
	}

	if _, err := b.dispatch(context.Background(), m.Content, cc); err != nil {
		b.log.WithError(err).Error("[Bot] Error running command")
		if rerr := cc.Reply.Embed(&discordgo.MessageEmbed{
			Description: fmt.Sprintf("Error running command: %v", err),
			Color:       command.EmbedColor,
		}); rerr != nil {
			b.log.WithError(rerr).Warn("[Bot] Failed to report command error")
		}
	}
}

// dispatch runs the command named by a prefixed chat line. handled is false
// for lines that are not commands.
func (b *Bot) dispatch(ctx context.Context, content string, cc *command.Context) (handled bool, err error) {
	inv, ok := cmd.Parse(b.prefix, content)
	if !ok {
		return false, nil
	}
	c := b.commands.Get(inv.Name)
	if c == nil {
		return false, nil
	}
	inv.Data = cc
	return true, c.Run(ctx, inv)
}

type channelReplier struct {
	s         *discordgo.Session
	channelID string
}

func (r *channelReplier) Text(content string) error {
	_, err := r.s.ChannelMessageSend(r.channelID, content)
	return err
}

func (r *channelReplier) Embed(embed *discordgo.MessageEmbed) error {
	_, err := r.s.ChannelMessageSendEmbed(r.channelID, embed)
	return err
}
