package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor connectivity and push pending changes when online",
	Long: `Poll the remote store every check interval. Each time it becomes
reachable the pending local changes are synchronized.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := current.app.Watch(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the remote schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, ok := current.app.Remote().(interface {
			Migrate(ctx context.Context) error
		})
		if !ok {
			return errors.New("remote store does not support migrations")
		}
		if err := m.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "remote schema is up to date")
		return nil
	},
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Remote store maintenance",
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every local record and sync state",
	Long: `Delete all entity rows and sync records from the local store. Metadata
such as the last sync date is kept. The next sync downloads everything
again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("refusing to clear local data without --yes")
		}
		if err := current.app.Store().ClearAllData(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "local data cleared")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm deletion")

	remoteCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(watchCmd, remoteCmd, resetCmd)
}
