// Package storage persists named playlists and the per-guild command history
// in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const (
	commandHistoryLimit  = 20
	defaultPlaylistLimit = 500
)

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrInvalidName      = errors.New("invalid playlist name")
	ErrPlaylistFull     = errors.New("playlist is full")
)

// Storage is safe for concurrent use.
type Storage struct {
	db    *sql.DB
	limit int
	log   logrus.FieldLogger
}

// New opens (or creates) the database at path and applies the schema.
// playlistLimit caps the number of entries per playlist; zero or less uses
// the default.
func New(path string, playlistLimit int, log logrus.FieldLogger) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(15 * time.Minute)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.WithError(err).WithField("pragma", pragma).Warn("[Storage] Failed to set pragma")
		}
	}

	if playlistLimit <= 0 {
		playlistLimit = defaultPlaylistLimit
	}
	s := &Storage{db: db, limit: playlistLimit, log: log}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.WithField("db_path", path).Info("[Storage] Database ready")
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS playlists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS playlist_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			thumbnail TEXT,
			duration INTEGER DEFAULT 0,
			channel TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_entries_playlist ON playlist_entries(playlist_id, position);`,
		`CREATE TABLE IF NOT EXISTS command_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			channel_id TEXT,
			user_id TEXT,
			username TEXT,
			command TEXT NOT NULL,
			param TEXT,
			datetime DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_command_history_guild ON command_history(guild_id, id);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
