package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
)

const maxNameLength = 64

// PlaylistInfo summarizes a stored playlist.
type PlaylistInfo struct {
	Name      string    `json:"name"`
	Tracks    int       `json:"tracks"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeName trims name and checks it is usable as a playlist key.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return name, nil
}

// Save appends tracks to the playlist called name, creating it if needed.
// Nothing is written when the result would exceed the playlist limit.
func (s *Storage) Save(ctx context.Context, name string, tracks []player.Track) error {
	return s.write(ctx, name, tracks, false)
}

// Replace sets the playlist called name to exactly tracks.
func (s *Storage) Replace(ctx context.Context, name string, tracks []player.Track) error {
	return s.write(ctx, name, tracks, true)
}

func (s *Storage) write(ctx context.Context, name string, tracks []player.Track, replace bool) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO playlists (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("create playlist %q: %w", name, err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM playlists WHERE name = ?`, name).Scan(&id); err != nil {
		return fmt.Errorf("lookup playlist %q: %w", name, err)
	}

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_entries WHERE playlist_id = ?`, id); err != nil {
			return fmt.Errorf("clear playlist %q: %w", name, err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_entries WHERE playlist_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("count playlist %q: %w", name, err)
	}
	if count+len(tracks) > s.limit {
		return fmt.Errorf("%w: %q has %d of %d entries", ErrPlaylistFull, name, count, s.limit)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO playlist_entries
		(playlist_id, position, url, title, thumbnail, duration, channel)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		t = t.Normalize()
		if _, err := stmt.ExecContext(ctx, id, count+i, t.URL, t.Title, t.Thumbnail, t.Duration, t.Channel); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.WithFields(logrus.Fields{"playlist": name, "replace": replace}).Debugf("[Storage] Saved %d tracks", len(tracks))
	return nil
}

// Load returns the playlist's tracks in the order they were saved.
func (s *Storage) Load(ctx context.Context, name string) ([]player.Track, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM playlists WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrPlaylistNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup playlist %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT url, title, thumbnail, duration, channel
		FROM playlist_entries WHERE playlist_id = ? ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	tracks := []player.Track{}
	for rows.Next() {
		var (
			t                         player.Track
			title, thumbnail, channel sql.NullString
			duration                  sql.NullInt64
		)
		if err := rows.Scan(&t.URL, &title, &thumbnail, &duration, &channel); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		t.Title = title.String
		t.Thumbnail = thumbnail.String
		t.Duration = int(duration.Int64)
		t.Channel = channel.String
		tracks = append(tracks, t.Normalize())
	}
	return tracks, rows.Err()
}

// List returns every playlist sorted by name.
func (s *Storage) List(ctx context.Context) ([]PlaylistInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT p.name, p.created_at, COUNT(e.id)
		FROM playlists p LEFT JOIN playlist_entries e ON e.playlist_id = p.id
		GROUP BY p.id ORDER BY p.name`)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	out := []PlaylistInfo{}
	for rows.Next() {
		var info PlaylistInfo
		if err := rows.Scan(&info.Name, &info.CreatedAt, &info.Tracks); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a playlist and its entries.
func (s *Storage) Delete(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete playlist %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrPlaylistNotFound, name)
	}
	return nil
}
