package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/loansync/internal/client/syncer"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id> <local|remote>",
	Short: "Settle a recorded conflict",
	Long: `Settle one conflict recorded by a previous sync.

"local" uploads the captured local version, "remote" writes the captured
remote version into the local store. Either way the record is marked synced.

Example usage:
  loansync resolve user_u1 local
  loansync resolve monthly_payment_42 remote`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := syncer.ParseConflictResolution(args[1])
		if err != nil {
			return err
		}
		if err := current.app.Syncer().ResolveConflict(cmd.Context(), args[0], r); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s resolved with %s version\n", args[0], r)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last sync date and the records waiting for sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		last, ok, err := current.app.Syncer().LastSyncDate(ctx)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "last sync: %s\n", last.Local().Format(time.RFC3339))
		} else {
			fmt.Fprintln(out, "last sync: never")
		}

		items, err := current.app.Store().GetPendingSyncItems(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pending: %d\n", len(items))
		if len(items) == 0 {
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tLAST MODIFIED\tFIELDS")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", it.ID, it.Status, it.LastModified.Format(time.RFC3339), it.ConflictFields)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd, statusCmd)
}
