package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/loansync/internal/flagx"
	"github.com/dmitrijs2005/loansync/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "empty", so a file may set only some
// values.
type JSONConfig struct {
	LocalDSN            *string         `json:"local_dsn"`
	RemoteDSN           *string         `json:"remote_dsn"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	HealthEndpoint      *string         `json:"health_endpoint"`
	LogFile             *string         `json:"log_file"`
	LogFormat           *string         `json:"log_format"`
	LogLevel            *string         `json:"log_level"`
}

// parseJSON overlays cfg with values from the file named by -c or -config.
// Without such a flag nothing is loaded.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.LocalDSN, jc.LocalDSN)
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.HealthEndpoint, jc.HealthEndpoint)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	return nil
}

func setString(dst, v *string) {
	if v != nil {
		*dst = *v
	}
}
