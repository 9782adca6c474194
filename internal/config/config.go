package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	DataDir  string         `mapstructure:"data_dir" json:"data_dir"`
	Channels ChannelsConfig `mapstructure:"channels" json:"channels"`
	Gateway  GatewayConfig  `mapstructure:"gateway" json:"gateway"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
	APIs     APIsConfig     `mapstructure:"apis" json:"apis"`
	Cooldown CooldownConfig `mapstructure:"cooldown" json:"cooldown"`
}

// ChannelsConfig channel settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram" json:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord" json:"discord"`
}

// TelegramConfig telegram bot settings
type TelegramConfig struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	Token     string   `mapstructure:"token" json:"token"`
	AllowFrom []string `mapstructure:"allow_from" json:"allow_from"`
}

// DiscordConfig Discord bot settings
type DiscordConfig struct {
	Enabled   bool     `mapstructure:"enabled" json:"enabled"`
	Token     string   `mapstructure:"token" json:"token"`
	AllowFrom []string `mapstructure:"allow_from" json:"allow_from"`
	// GuildID scopes application command registration to one server.
	// Empty registers global commands.
	GuildID          string `mapstructure:"guild_id" json:"guild_id"`
	RegisterCommands bool   `mapstructure:"register_commands" json:"register_commands"`
}

// GatewayConfig HTTP gateway settings
type GatewayConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Host    string `mapstructure:"host" json:"host"`
	Port    int    `mapstructure:"port" json:"port"`
	Token   string `mapstructure:"token" json:"token"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file"`
}

// APIsConfig public API endpoints. Empty URLs use the built-in defaults.
type APIsConfig struct {
	Timeout  int    `mapstructure:"timeout" json:"timeout"` // seconds
	DogURL   string `mapstructure:"dog_url" json:"dog_url"`
	CatURL   string `mapstructure:"cat_url" json:"cat_url"`
	JokeURL  string `mapstructure:"joke_url" json:"joke_url"`
	QuoteURL string `mapstructure:"quote_url" json:"quote_url"`
}

// TimeoutDuration returns the request timeout.
func (a APIsConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// CooldownConfig per-sender command throttling.
type CooldownConfig struct {
	ImageSeconds int `mapstructure:"image_seconds" json:"image_seconds"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir: filepath.Join(ConfigDir(), "data"),
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				AllowFrom: []string{},
			},
			Discord: DiscordConfig{
				Enabled:          false,
				AllowFrom:        []string{},
				RegisterCommands: true,
			},
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    18791,
			Token:   "",
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		APIs: APIsConfig{
			Timeout: 15,
		},
		Cooldown: CooldownConfig{
			ImageSeconds: 5,
		},
	}
}

// ConfigDir returns the funbot config directory
func ConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("failed to resolve home directory, using current directory as fallback", "error", err)
		homeDir = "."
	}
	return filepath.Join(homeDir, ".funbot")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads config from configPath, writing the defaults there first
// when the file does not exist.
func LoadFrom(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveTo(configPath, cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	loadDotEnv(filepath.Join(filepath.Dir(configPath), ".env"))

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("FUNBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports the variables of an optional .env file next to the
// config. Variables already set in the environment win.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load env file", "path", path, "error", err)
	}
}

// bindEnv registers the keys that may be set from the environment only, such
// as tokens kept out of the config file.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"channels.telegram.token",
		"channels.discord.token",
		"gateway.token",
		"log.level",
	} {
		_ = v.BindEnv(key)
	}
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to the default path
func Save(cfg *Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo saves config to configPath
func SaveTo(configPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port must be between 1 and 65535, got %d", c.Gateway.Port)
	}

	if c.Channels.Telegram.Enabled && strings.TrimSpace(c.Channels.Telegram.Token) == "" {
		return fmt.Errorf("channels.telegram.token must be set when telegram is enabled")
	}
	if c.Channels.Discord.Enabled && strings.TrimSpace(c.Channels.Discord.Token) == "" {
		return fmt.Errorf("channels.discord.token must be set when discord is enabled")
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	if c.APIs.Timeout < 0 {
		return fmt.Errorf("apis.timeout must not be negative, got %d", c.APIs.Timeout)
	}
	if c.APIs.Timeout == 0 {
		c.APIs.Timeout = 15
	}

	if c.Cooldown.ImageSeconds < 0 {
		return fmt.Errorf("cooldown.image_seconds must not be negative, got %d", c.Cooldown.ImageSeconds)
	}

	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(ConfigDir(), "data")
	}

	return nil
}

// DataPath returns the expanded data directory.
func (c *Config) DataPath() string {
	dir := strings.TrimSpace(c.DataDir)
	if dir == "" {
		return filepath.Join(ConfigDir(), "data")
	}
	if dir[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return dir
		}
		rest := strings.TrimPrefix(dir[1:], string(filepath.Separator))
		rest = strings.TrimPrefix(rest, "/")
		return filepath.Join(homeDir, rest)
	}
	return dir
}
