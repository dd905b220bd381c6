package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/loansync/internal/client/syncer"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full reconciliation with the remote store",
	Long: `Run every reconciliation pass: users, clients, loans, payments and the
monthly payments of the current month.

Without --resolve, records that differ on both sides are stored as
conflicts and listed in the output. With --resolve=remote the remote
version overwrites the local one.

Example usage:
  loansync sync
  loansync sync --resolve remote --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolve, _ := cmd.Flags().GetString("resolve")
		asJSON, _ := cmd.Flags().GetBool("json")

		opts := syncer.SyncOptions{ForceSync: true}
		if resolve != "" {
			r, err := syncer.ParseConflictResolution(resolve)
			if err != nil {
				return err
			}
			opts.ResolveConflicts = true
			opts.ConflictResolution = r
		}

		res, err := current.app.Syncer().SyncAll(cmd.Context(), opts)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, asJSON)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Sync only when local changes are waiting",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		res, err := current.app.Syncer().SyncPendingChanges(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res, asJSON)
	},
}

func init() {
	syncCmd.Flags().String("resolve", "", "resolve conflicts automatically (local, remote or manual)")
	syncCmd.Flags().Bool("json", false, "print the result as JSON")
	pendingCmd.Flags().Bool("json", false, "print the result as JSON")

	rootCmd.AddCommand(syncCmd, pendingCmd)
}

func printResult(w io.Writer, res *syncer.SyncResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	status := "ok"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "sync %s: %d synced, %d conflicts, %d errors\n",
		status, res.SyncedCount, res.ConflictCount, res.ErrorCount)

	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	if len(res.Conflicts) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFLICT\tFIELDS")
	for _, c := range res.Conflicts {
		fmt.Fprintf(tw, "%s\t%v\n", c.ID, c.ConflictFields)
	}
	return tw.Flush()
}
