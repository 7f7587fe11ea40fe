package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the jukebox reads at startup. Values come from
// the defaults, then an optional TOML file named by CONFIG_FILE, then the
// environment (including a .env file).
type Config struct {
	DiscordToken          string   `toml:"discord_token" env:"DISCORD_TOKEN"`
	DiscordGuildBlacklist []string `toml:"discord_guild_blacklist" env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	CommandPrefix         string   `toml:"command_prefix" env:"COMMAND_PREFIX"`

	HTTPAddr    string `toml:"http_addr" env:"HTTP_ADDR"`
	StoragePath string `toml:"storage_path" env:"STORAGE_PATH"`

	LogLevel  string `toml:"log_level" env:"LOG_LEVEL"`
	LogFormat string `toml:"log_format" env:"LOG_FORMAT"`

	ResolverProxy        string  `toml:"resolver_proxy" env:"RESOLVER_PROXY"`
	ResolverRPS          float64 `toml:"resolver_rps" env:"RESOLVER_RPS"`
	ResolverMaxAttempts  int     `toml:"resolver_max_attempts" env:"RESOLVER_MAX_ATTEMPTS"`
	YouTubePlaylistLimit int     `toml:"youtube_playlist_limit" env:"YOUTUBE_PLAYLIST_LIMIT"`

	PlaylistLimit int    `toml:"playlist_limit" env:"PLAYLIST_LIMIT"`
	FFmpegPath    string `toml:"ffmpeg_path" env:"FFMPEG_PATH"`
}

// Default returns the configuration used when nothing overrides it. The
// Discord token has no default.
func Default() Config {
	return Config{
		CommandPrefix:        "!",
		HTTPAddr:             ":8080",
		StoragePath:          "jukebox.db",
		LogLevel:             "info",
		LogFormat:            "text",
		ResolverRPS:          2,
		ResolverMaxAttempts:  3,
		YouTubePlaylistLimit: 100,
		PlaylistLimit:        500,
		FFmpegPath:           "ffmpeg",
	}
}

// Load builds the configuration from the process environment. A missing
// .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return load(env.ToMap(os.Environ()))
}

func load(environ map[string]string) (*Config, error) {
	cfg := Default()

	if path := environ["CONFIG_FILE"]; path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DiscordToken) == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if strings.TrimSpace(c.CommandPrefix) == "" {
		errs = append(errs, errors.New("COMMAND_PREFIX must not be empty"))
	}
	if c.StoragePath == "" {
		errs = append(errs, errors.New("STORAGE_PATH must not be empty"))
	}
	if c.ResolverRPS <= 0 {
		errs = append(errs, fmt.Errorf("RESOLVER_RPS must be positive, got %v", c.ResolverRPS))
	}
	if c.ResolverMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RESOLVER_MAX_ATTEMPTS must be at least 1, got %d", c.ResolverMaxAttempts))
	}
	if c.PlaylistLimit < 1 {
		errs = append(errs, fmt.Errorf("PLAYLIST_LIMIT must be at least 1, got %d", c.PlaylistLimit))
	}
	if c.YouTubePlaylistLimit < 0 {
		errs = append(errs, fmt.Errorf("YOUTUBE_PLAYLIST_LIMIT must not be negative, got %d", c.YouTubePlaylistLimit))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// HTTPEnabled reports whether the HTTP API should be served. HTTP_ADDR=off
// turns it off.
func (c *Config) HTTPEnabled() bool {
	return c.HTTPAddr != "" && !strings.EqualFold(c.HTTPAddr, "off")
}
