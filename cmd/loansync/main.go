// Command loansync runs reconciliation between the local loan store and the
// remote backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/loansync/internal/client/app"
	"github.com/dmitrijs2005/loansync/internal/client/config"
	"github.com/spf13/cobra"
)

// session holds what PersistentPreRunE builds for the running command.
type session struct {
	cfg       *config.Config
	app       *app.App
	logCloser io.Closer
}

var current session

// configFlags maps cobra flags onto the short flags understood by the
// config package.
var configFlags = []struct{ name, short string }{
	{"config", "c"},
	{"local", "l"},
	{"remote", "r"},
	{"interval", "i"},
	{"health", "e"},
}

var rootCmd = &cobra.Command{
	Use:           "loansync",
	Short:         "Offline-first loan store synchronizer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configArgs(cmd))
		if err != nil {
			return err
		}
		logger, closer, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}

		a, err := app.NewApp(cmd.Context(), cfg, logger)
		if err != nil {
			_ = closer.Close()
			return err
		}
		current = session{cfg: cfg, app: a, logCloser: closer}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeSession()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "path to JSON config file")
	pf.StringP("local", "l", "", "local store path")
	pf.StringP("remote", "r", "", "remote store DSN")
	pf.IntP("interval", "i", 0, "online check interval (seconds)")
	pf.StringP("health", "e", "", "gRPC health endpoint")
}

// configArgs turns the flags set on cmd into config package arguments.
func configArgs(cmd *cobra.Command) []string {
	var args []string
	for _, f := range configFlags {
		if !cmd.Flags().Changed(f.name) {
			continue
		}
		args = append(args, "-"+f.short, cmd.Flags().Lookup(f.name).Value.String())
	}
	return args
}

func closeSession() error {
	var err error
	if current.app != nil {
		err = current.app.Close()
	}
	if current.logCloser != nil {
		_ = current.logCloser.Close()
	}
	current = session{}
	return err
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_ = closeSession()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
