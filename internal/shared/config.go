package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
	Log      LogConfig      `toml:"log"`
}

// SpotifyConfig contains the public PKCE client settings and API endpoints.
type SpotifyConfig struct {
	ClientID            string   `toml:"client_id"`
	RedirectURI         string   `toml:"redirect_uri"`
	Scopes              []string `toml:"scopes"`
	AuthURL             string   `toml:"auth_url"`
	TokenURL            string   `toml:"token_url"`
	APIURL              string   `toml:"api_url"`
	RateLimit           float64  `toml:"rate_limit"`
	MaxRateLimitRetries int      `toml:"max_rate_limit_retries"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PlayerConfig contains playback device settings.
type PlayerConfig struct {
	DeviceName     string   `toml:"device_name"`
	ConnectTimeout Duration `toml:"connect_timeout"`
	PollInterval   Duration `toml:"poll_interval"`
	SuppressWindow Duration `toml:"suppress_window"`
}

// LogConfig contains log level and the rotating file used by the TUI.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Duration wraps [time.Duration] so it can be written as "8s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// envOverrides maps environment variables onto config fields.
var envOverrides = map[string]func(*Config, string){
	"SPX_CLIENT_ID":     func(c *Config, v string) { c.Spotify.ClientID = v },
	"SPX_REDIRECT_URI":  func(c *Config, v string) { c.Spotify.RedirectURI = v },
	"SPX_DATABASE_PATH": func(c *Config, v string) { c.Database.Path = v },
	"SPX_DEVICE_NAME":   func(c *Config, v string) { c.Player.DeviceName = v },
	"SPX_LOG_LEVEL":     func(c *Config, v string) { c.Log.Level = v },
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Fields missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the config as TOML to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv loads variables from the dotenv files (missing files are ignored) and
// applies any SPX_* overrides present in the environment.
func (c *Config) ApplyEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	for name, apply := range envOverrides {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			apply(c, v)
		}
	}
	return nil
}

// Validate reports missing settings needed to talk to Spotify.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: spotify.client_id must be set", ErrMissingConfig)
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify.redirect_uri must be set", ErrMissingConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", ErrMissingConfig)
	}
	return nil
}
