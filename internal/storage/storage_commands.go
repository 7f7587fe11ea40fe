package storage

import (
	"context"
	"fmt"
	"time"
)

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

// AppendCommandToHistory records a command for a guild, keeping only the
// most recent entries.
func (s *Storage) AppendCommandToHistory(ctx context.Context, guildID string, rec CommandHistoryRecord) error {
	if rec.Datetime.IsZero() {
		rec.Datetime = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO command_history
		(guild_id, channel_id, user_id, username, command, param, datetime)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		guildID, rec.ChannelID, rec.UserID, rec.Username, rec.Command, rec.Param, rec.Datetime.UTC()); err != nil {
		return fmt.Errorf("insert command: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM command_history WHERE guild_id = ? AND id NOT IN
		(SELECT id FROM command_history WHERE guild_id = ? ORDER BY id DESC LIMIT ?)`,
		guildID, guildID, commandHistoryLimit); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	return tx.Commit()
}

// FetchCommandHistory returns a guild's recent commands, oldest first.
func (s *Storage) FetchCommandHistory(ctx context.Context, guildID string) ([]CommandHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, user_id, username, command, param, datetime
		FROM command_history WHERE guild_id = ? ORDER BY id`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []CommandHistoryRecord{}
	for rows.Next() {
		var rec CommandHistoryRecord
		if err := rows.Scan(&rec.ChannelID, &rec.UserID, &rec.Username, &rec.Command, &rec.Param, &rec.Datetime); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
