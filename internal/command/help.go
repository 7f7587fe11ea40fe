package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guild-jukebox/pkg/cmd"
)

type categorized interface {
	Category() string
}

type HelpCommand struct {
	registry *cmd.Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List the available commands" }
func (c *HelpCommand) Aliases() []string   { return []string{"h"} }
func (c *HelpCommand) Category() string    { return InformationCategory }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := fromInvocation(inv)
	if err != nil {
		return err
	}

	groups := map[string]*strings.Builder{}
	var order []string
	for _, command := range c.registry.GetAll() {
		group := "Other"
		if cat, ok := cmd.Root(command).(categorized); ok {
			group = cat.Category()
		}
		b, ok := groups[group]
		if !ok {
			b = &strings.Builder{}
			groups[group] = b
			order = append(order, group)
		}

		fmt.Fprintf(b, "`%s`", command.Name())
		if a, ok := cmd.Root(command).(cmd.Aliased); ok && len(a.Aliases()) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(a.Aliases(), ", "))
		}
		fmt.Fprintf(b, " - %s\n", command.Description())
	}
	sort.Strings(order)

	fields := make([]*discordgo.MessageEmbedField, 0, len(order))
	for _, group := range order {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  group,
			Value: strings.TrimRight(groups[group].String(), "\n"),
		})
	}

	return cc.Reply.Embed(&discordgo.MessageEmbed{
		Title:  "Commands",
		Fields: fields,
		Color:  EmbedColor,
	})
}
