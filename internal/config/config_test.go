package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(map[string]string{"DISCORD_TOKEN": "abc"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Default()
	want.DiscordToken = "abc"
	if !reflect.DeepEqual(*cfg, want) {
		t.Errorf("cfg = %+v\nwant %+v", *cfg, want)
	}
	if !cfg.HTTPEnabled() {
		t.Error("HTTP disabled by default")
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jukebox.toml")
	file := `
discord_token = "from-file"
command_prefix = "?"
playlist_limit = 10
discord_guild_blacklist = ["1", "2"]
log_format = "json"
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(map[string]string{
		"CONFIG_FILE":    path,
		"PLAYLIST_LIMIT": "25",
		"RESOLVER_RPS":   "0.5",
		"HTTP_ADDR":      "off",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DiscordToken != "from-file" || cfg.CommandPrefix != "?" || cfg.LogFormat != "json" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.PlaylistLimit != 25 || cfg.ResolverRPS != 0.5 {
		t.Errorf("env values not applied: limit=%d rps=%v", cfg.PlaylistLimit, cfg.ResolverRPS)
	}
	if !reflect.DeepEqual(cfg.DiscordGuildBlacklist, []string{"1", "2"}) {
		t.Errorf("blacklist = %v", cfg.DiscordGuildBlacklist)
	}
	if cfg.HTTPEnabled() {
		t.Error("HTTP_ADDR=off left the API enabled")
	}
}

func TestLoad_BlacklistFromEnv(t *testing.T) {
	cfg, err := load(map[string]string{"DISCORD_TOKEN": "x", "DISCORD_GUILD_BLACKLIST": "10,20"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.DiscordGuildBlacklist, []string{"10", "20"}) {
		t.Errorf("blacklist = %v", cfg.DiscordGuildBlacklist)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"missing token", map[string]string{}, "DISCORD_TOKEN"},
		{"bad attempts", map[string]string{"DISCORD_TOKEN": "x", "RESOLVER_MAX_ATTEMPTS": "0"}, "RESOLVER_MAX_ATTEMPTS"},
		{"bad format", map[string]string{"DISCORD_TOKEN": "x", "LOG_FORMAT": "xml"}, "LOG_FORMAT"},
		{"not a number", map[string]string{"DISCORD_TOKEN": "x", "PLAYLIST_LIMIT": "many"}, "parse environment"},
		{"missing file", map[string]string{"DISCORD_TOKEN": "x", "CONFIG_FILE": "/nonexistent/jukebox.toml"}, "config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.environ)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
