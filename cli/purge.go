package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spachava753/promosweep/triage"
)

func newPurgeCmd(flags *globalFlags) *cobra.Command {
	var labelFlag string
	var dryRunFlag, keepLedgerFlag bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Trash every labeled message and empty the trash",
		Long: `purge moves every message carrying the label to the trash and then
permanently deletes everything in the trash, including messages that were
already there. The unsubscribe ledger is removed afterwards unless
--keep-ledger is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("label") {
				cfg.Purge.Label = labelFlag
			}

			sess, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer logout(sess, logger)

			report, err := triage.Purge(cmd.Context(), sess, triage.PurgeOptions{
				Label:      cfg.Purge.Label,
				BatchSize:  cfg.Purge.BatchSize,
				DryRun:     dryRunFlag,
				LedgerPath: cfg.Unsubscribe.Ledger,
				KeepLedger: keepLedgerFlag,
				Pacer:      flags.pacer(cfg.Purge.Delay),
				Logger:     logger,
			})
			printPurgeReport(cmd.OutOrStdout(), report, cfg.Purge.Label, dryRunFlag)
			return err
		},
	}

	cmd.Flags().StringVar(&labelFlag, "label", "", "label whose messages are purged (default from config, Promo)")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "only count labeled messages")
	cmd.Flags().BoolVar(&keepLedgerFlag, "keep-ledger", false, "do not remove the unsubscribe ledger")
	return cmd
}

func printPurgeReport(w io.Writer, r triage.PurgeReport, label string, dryRun bool) {
	if r.Matched == 0 {
		fmt.Fprintf(w, "No messages found with label %q.\n", label)
	} else {
		fmt.Fprintf(w, "Found %d messages with label %q.\n", r.Matched, label)
	}
	if dryRun {
		return
	}
	fmt.Fprintf(w, "Moved %d to trash", r.Trashed)
	if r.Failed > 0 {
		fmt.Fprintf(w, " (%d failed)", r.Failed)
	}
	fmt.Fprintln(w, ".")
	if r.Aborted {
		fmt.Fprintln(w, "Stopped early; the trash was not fully emptied.")
		return
	}
	fmt.Fprintf(w, "Permanently deleted %d of %d trash messages in %d batches.\n", r.Deleted, r.TrashSize, r.Batches)
	if r.LedgerRemoved {
		fmt.Fprintln(w, "Removed the unsubscribe ledger.")
	}
}
