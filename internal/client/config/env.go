package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "LOANSYNC_"

// parseEnv loads envFile (when it exists) into the process environment
// without overriding variables already set, then overlays every
// LOANSYNC_* variable onto cfg.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"LOCAL_DSN":       &cfg.LocalDSN,
		"REMOTE_DSN":      &cfg.RemoteDSN,
		"HEALTH_ENDPOINT": &cfg.HealthEndpoint,
		"LOG_FILE":        &cfg.LogFile,
		"LOG_FORMAT":      &cfg.LogFormat,
		"LOG_LEVEL":       &cfg.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "ONLINE_CHECK_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sONLINE_CHECK_INTERVAL: %w", envPrefix, err)
		}
		cfg.OnlineCheckInterval = d
	}
	return nil
}
