package command

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/internal/music/player"
)

const queueEmbedLimit = 10

// SongEmbed renders a track. position is its 1-based place in the queue; 0
// means it is playing now.
func SongEmbed(t player.Track, position int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: t.Title,
		URL:   t.URL,
		Color: EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Channel", Value: t.Channel, Inline: true},
		},
	}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	if d := t.FormattedDuration(); d != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: d, Inline: true})
	}

	footer := "Now playing"
	if position > 0 {
		footer = fmt.Sprintf("Position in queue: %d", position)
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	return embed
}

// AddedEmbed summarizes an enqueue of more than one track.
func AddedEmbed(res player.EnqueueResult) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("Added %d tracks to the queue", res.Count())
	if res.Position > 0 {
		desc += fmt.Sprintf(", starting at position %d", res.Position)
	}
	return &discordgo.MessageEmbed{
		Title:       "🎶 Tracks Added",
		Description: desc + ".",
		Color:       EmbedColor,
	}
}

// QueueEmbed lists the current track and the next pending ones.
func QueueEmbed(st player.Status) *discordgo.MessageEmbed {
	var b strings.Builder
	if st.Current != nil {
		icon := "▶️"
		if st.State == player.StatePaused {
			icon = "⏸"
		}
		fmt.Fprintf(&b, "%s [%s](%s)\n", icon, st.Current.String(), st.Current.URL)
	}
	for i, t := range st.Pending {
		if i == queueEmbedLimit {
			fmt.Fprintf(&b, "...and %d more\n", len(st.Pending)-queueEmbedLimit)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.String())
	}
	if b.Len() == 0 {
		b.WriteString("The queue is empty.")
	}

	return &discordgo.MessageEmbed{
		Title:       "🎵 Queue",
		Description: strings.TrimRight(b.String(), "\n"),
		Color:       EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d pending", len(st.Pending))},
	}
}
