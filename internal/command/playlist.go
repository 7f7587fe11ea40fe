package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/pkg/cmd"
)

const playlistUsage = "📂 Usage: playlist save <name> | load <name> | import <name> <url> | list | delete <name>"

type PlaylistCommand struct {
	deps *Deps
}

func (c *PlaylistCommand) Name() string        { return "playlist" }
func (c *PlaylistCommand) Description() string { return "Save, load, import, list and delete named playlists" }
func (c *PlaylistCommand) Aliases() []string   { return []string{"pl"} }
func (c *PlaylistCommand) Category() string    { return MusicCategory }

func (c *PlaylistCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}
	if len(inv.Args) == 0 {
		return cc.Reply.Text(playlistUsage)
	}

	sub := strings.ToLower(inv.Args[0])
	rest := strings.Join(inv.Args[1:], " ")

	switch sub {
	case "save":
		err = c.save(ctx, cc, rest)
	case "load":
		err = c.load(ctx, cc, rest)
	case "import":
		if len(inv.Args) < 3 {
			return cc.Reply.Text(playlistUsage)
		}
		name := strings.Join(inv.Args[1:len(inv.Args)-1], " ")
		err = c.importURL(ctx, cc, name, inv.Args[len(inv.Args)-1])
	case "list":
		err = c.list(ctx, cc)
	case "delete":
		err = c.delete(ctx, cc, rest)
	default:
		return cc.Reply.Text(playlistUsage)
	}
	if err != nil {
		return replyError(cc, err)
	}
	return nil
}

// save stores the current track and everything pending under name.
func (c *PlaylistCommand) save(ctx context.Context, cc *Context, name string) error {
	var tracks []player.Track
	if ctrl, ok := c.deps.Players.Lookup(cc.GuildID); ok {
		st := ctrl.Status()
		if st.Current != nil {
			tracks = append(tracks, *st.Current)
		}
		tracks = append(tracks, st.Pending...)
	}
	if len(tracks) == 0 {
		return cc.Reply.Text("📂 Nothing to save, the queue is empty.")
	}

	if err := c.deps.Playlists.Save(ctx, name, tracks); err != nil {
		return err
	}
	return cc.Reply.Text(fmt.Sprintf("📂 Saved %d tracks to **%s**", len(tracks), strings.TrimSpace(name)))
}

func (c *PlaylistCommand) load(ctx context.Context, cc *Context, name string) error {
	tracks, err := c.deps.Playlists.Load(ctx, name)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return cc.Reply.Text(fmt.Sprintf("📂 **%s** is empty.", strings.TrimSpace(name)))
	}

	res, err := c.deps.Players.Get(cc.GuildID).EnqueueTracks(ctx, cc.channel(), tracks)
	if err != nil {
		return err
	}
	return replyEnqueued(cc, res)
}

// importURL resolves url and appends everything it yields to the playlist.
func (c *PlaylistCommand) importURL(ctx context.Context, cc *Context, name, url string) error {
	tracks, err := c.deps.Resolver.Resolve(ctx, url)
	if err != nil {
		return err
	}
	if err := c.deps.Playlists.Save(ctx, name, tracks); err != nil {
		return err
	}
	return cc.Reply.Text(fmt.Sprintf("📂 Imported %d tracks into **%s**", len(tracks), strings.TrimSpace(name)))
}

func (c *PlaylistCommand) list(ctx context.Context, cc *Context) error {
	all, err := c.deps.Playlists.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return cc.Reply.Text("📂 No playlists saved yet.")
	}

	var b strings.Builder
	for _, p := range all {
		fmt.Fprintf(&b, "**%s** (%d tracks)\n", p.Name, p.Tracks)
	}
	return cc.Reply.Embed(&discordgo.MessageEmbed{
		Title:       "📂 Playlists",
		Description: strings.TrimRight(b.String(), "\n"),
		Color:       EmbedColor,
	})
}

func (c *PlaylistCommand) delete(ctx context.Context, cc *Context, name string) error {
	if err := c.deps.Playlists.Delete(ctx, name); err != nil {
		return err
	}
	return cc.Reply.Text(fmt.Sprintf("📂 Deleted **%s**", strings.TrimSpace(name)))
}
