package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/loansync/internal/flagx"
)

// parseFlags populates cfg from command-line flags. args is filtered down
// to the flags handled here so subcommand arguments do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-l", "-r", "-i", "-e"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.LocalDSN, "l", cfg.LocalDSN, "local store path")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote store DSN")
	fs.StringVar(&cfg.HealthEndpoint, "e", cfg.HealthEndpoint, "gRPC health endpoint")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		}
	})
	return nil
}
