package command

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/storage"
	"guild-jukebox/pkg/cmd"
)

// WithGuildOnly drops invocations that did not come from a guild.
func WithGuildOnly() cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			c, err := fromInvocation(inv)
			if err != nil {
				return err
			}
			if c.GuildID == "" {
				return nil
			}
			return next.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs each command after it runs and records it in the
// guild's command history. history may be nil.
func WithCommandLogger(history History, log logrus.FieldLogger) cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := next.Run(ctx, inv)

			c, cerr := fromInvocation(inv)
			if cerr != nil {
				return err
			}

			entry := log.WithFields(logrus.Fields{
				"guild_id": c.GuildID,
				"user":     c.Username,
				"command":  next.Name(),
				"took":     time.Since(start).Round(time.Millisecond),
			})
			if err != nil {
				entry.WithError(err).Warn("[Command] Failed")
			} else {
				entry.Info("[Command] Executed")
			}

			if history != nil {
				rec := storage.CommandHistoryRecord{
					ChannelID: c.ChannelID,
					UserID:    c.UserID,
					Username:  c.Username,
					Command:   next.Name(),
					Param:     inv.Raw,
					Datetime:  start,
				}
				if herr := history.AppendCommandToHistory(ctx, c.GuildID, rec); herr != nil {
					log.WithError(herr).Warnf("[Command] Failed to log command %s", next.Name())
				}
			}
			return err
		})
	}
}
