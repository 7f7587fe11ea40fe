// Package command holds the jukebox's chat commands. Commands are
// transport-agnostic: an adapter fills a Context and passes it as the
// invocation's Data.
package command

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/storage"
	"guild-jukebox/pkg/cmd"
)

const (
	EmbedColor = 0xb01e66

	MusicCategory       = "🎵 Music"
	InformationCategory = "🕯️ Information"
)

var errNoContext = errors.New("invocation carries no command context")

// Replier answers the user who ran a command.
type Replier interface {
	Text(content string) error
	Embed(embed *discordgo.MessageEmbed) error
}

// Context is what a command knows about where it was invoked.
type Context struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	// VoiceChannelID is the invoker's current voice channel, empty if they
	// are not in one.
	VoiceChannelID string
	Reply          Replier
}

func (c *Context) channel() player.ChannelContext {
	return player.ChannelContext{VoiceChannelID: c.VoiceChannelID, TextChannelID: c.ChannelID}
}

func fromInvocation(inv *cmd.Invocation) (*Context, error) {
	c, ok := inv.Data.(*Context)
	if !ok || c == nil || c.Reply == nil {
		return nil, errNoContext
	}
	return c, nil
}

// Playlists is the named-playlist store the playlist command works on.
type Playlists interface {
	Save(ctx context.Context, name string, tracks []player.Track) error
	Load(ctx context.Context, name string) ([]player.Track, error)
	List(ctx context.Context) ([]storage.PlaylistInfo, error)
	Delete(ctx context.Context, name string) error
}

// History records executed commands.
type History interface {
	AppendCommandToHistory(ctx context.Context, guildID string, rec storage.CommandHistoryRecord) error
}

// Deps are the services commands act on.
type Deps struct {
	Players   *player.Registry
	Playlists Playlists
	Resolver  player.Resolver
	History   History
	Log       logrus.FieldLogger
}

// Register adds every jukebox command to reg.
func Register(reg *cmd.Registry, deps *Deps) {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	mws := []cmd.Middleware{
		WithGuildOnly(),
		WithCommandLogger(deps.History, deps.Log),
	}

	for _, c := range []cmd.Command{
		&PlayCommand{deps: deps},
		&SkipCommand{deps: deps},
		&PauseCommand{deps: deps},
		&ResumeCommand{deps: deps},
		&StopCommand{deps: deps},
		&QueueCommand{deps: deps},
		&NowPlayingCommand{deps: deps},
		&PlaylistCommand{deps: deps},
		&HelpCommand{registry: reg},
	} {
		reg.Register(cmd.Apply(c, mws...))
	}
}
