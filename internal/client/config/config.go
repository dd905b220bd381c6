package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config holds runtime settings for the loansync CLI.
type Config struct {
	LocalDSN            string
	RemoteDSN           string
	OnlineCheckInterval time.Duration
	HealthEndpoint      string
	LogFile             string
	LogFormat           string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "loansync.db"
	c.RemoteDSN = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.HealthEndpoint = ""
	c.LogFile = ""
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment, a JSON file and command-line flags. Later sources
// take precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.OnlineCheckInterval <= 0 {
		return nil, fmt.Errorf("online check interval must be positive, got %s", cfg.OnlineCheckInterval)
	}
	return cfg, nil
}
