// Package config holds the runtime settings of the intel monitor.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. EVEINTEL_PLAYERS=Alice,Bob.
const EnvPrefix = "EVEINTEL"

// FileName is the config file looked up when no explicit path is given.
const FileName = "eve-intel"

// LocalChannel is always watched; it drives location tracking.
const LocalChannel = "Local"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds application settings.
type Config struct {
	ChatLogs       string        `mapstructure:"chat_logs"`
	Channels       []string      `mapstructure:"channels"`
	Players        []string      `mapstructure:"players"`
	Universe       string        `mapstructure:"universe"`
	CatchUp        bool          `mapstructure:"catch_up"`       // replay existing logs on start
	Tick           time.Duration `mapstructure:"tick"`           // debounce flush interval
	WatchDebounce  time.Duration `mapstructure:"watch_debounce"` // filesystem event coalescing
	MetricsAddr    string        `mapstructure:"metrics_addr"`   // "" = disabled
	DiscordWebhook string        `mapstructure:"discord_webhook"`
	LogLevel       string        `mapstructure:"log_level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ChatLogs:      defaultChatLogs(),
		Channels:      []string{LocalChannel},
		Universe:      "universe.db",
		Tick:          200 * time.Millisecond,
		WatchDebounce: 200 * time.Millisecond,
		LogLevel:      "info",
	}
}

func defaultChatLogs() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("Documents", "EVE", "logs", "Chatlogs")
	}
	return filepath.Join(home, "Documents", "EVE", "logs", "Chatlogs")
}

// Load reads the config file at path, or looks for eve-intel.yaml in the
// working directory and the user config directory when path is empty.
// Missing implicit files fall back to defaults; EVEINTEL_* variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("chat_logs", def.ChatLogs)
	v.SetDefault("channels", def.Channels)
	v.SetDefault("players", []string{})
	v.SetDefault("universe", def.Universe)
	v.SetDefault("catch_up", def.CatchUp)
	v.SetDefault("tick", def.Tick)
	v.SetDefault("watch_debounce", def.WatchDebounce)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("discord_webhook", def.DiscordWebhook)
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Normalize expands "~" in paths, trims list entries and makes sure Local
// is watched.
func (c *Config) Normalize() {
	c.ChatLogs = expandHome(strings.TrimSpace(c.ChatLogs))
	c.Universe = expandHome(strings.TrimSpace(c.Universe))
	c.Players = cleanList(c.Players)

	channels := cleanList(c.Channels)
	hasLocal := false
	for _, ch := range channels {
		if strings.EqualFold(ch, LocalChannel) {
			hasLocal = true
			break
		}
	}
	if !hasLocal {
		channels = append([]string{LocalChannel}, channels...)
	}
	c.Channels = channels
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		// Env values arrive as one comma separated entry.
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			key := strings.ToUpper(part)
			if part == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// FieldError is a validation failure for one field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config field %q: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// Validate checks the settings the pipeline cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.ChatLogs == "":
		return &FieldError{Field: "chat_logs", Message: "chat log directory is required"}
	case len(c.Players) == 0:
		return &FieldError{Field: "players", Message: "at least one player is required"}
	case c.Universe == "":
		return &FieldError{Field: "universe", Message: "universe snapshot path is required"}
	case c.Tick <= 0:
		return &FieldError{Field: "tick", Message: "must be positive"}
	case c.WatchDebounce <= 0:
		return &FieldError{Field: "watch_debounce", Message: "must be positive"}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &FieldError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	return nil
}

// fileConfig is the on-disk YAML layout.
type fileConfig struct {
	ChatLogs       string   `yaml:"chat_logs"`
	Channels       []string `yaml:"channels"`
	Players        []string `yaml:"players"`
	Universe       string   `yaml:"universe"`
	CatchUp        bool     `yaml:"catch_up"`
	Tick           string   `yaml:"tick"`
	WatchDebounce  string   `yaml:"watch_debounce"`
	MetricsAddr    string   `yaml:"metrics_addr,omitempty"`
	DiscordWebhook string   `yaml:"discord_webhook,omitempty"`
	LogLevel       string   `yaml:"log_level"`
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(fileConfig{
		ChatLogs:       c.ChatLogs,
		Channels:       c.Channels,
		Players:        c.Players,
		Universe:       c.Universe,
		CatchUp:        c.CatchUp,
		Tick:           c.Tick.String(),
		WatchDebounce:  c.WatchDebounce.String(),
		MetricsAddr:    c.MetricsAddr,
		DiscordWebhook: c.DiscordWebhook,
		LogLevel:       c.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
