package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spachava753/promosweep/promo"
	"github.com/spachava753/promosweep/triage"
)

func newClassifyCmd(flags *globalFlags) *cobra.Command {
	var mailboxFlag, labelFlag string
	var dryRunFlag, countOnlyFlag bool
	var keywordsFlag []string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Label promotional messages in a mailbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mailbox") {
				cfg.Classify.Mailbox = mailboxFlag
			}
			if cmd.Flags().Changed("label") {
				cfg.Classify.Label = labelFlag
			}
			if cmd.Flags().Changed("keyword") {
				cfg.Classify.Keywords = keywordsFlag
			}

			sess, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer logout(sess, logger)

			report, err := triage.Classify(cmd.Context(), sess, triage.ClassifyOptions{
				Mailbox:    cfg.Classify.Mailbox,
				Label:      cfg.Classify.Label,
				Classifier: promo.NewClassifier(cfg.Classify.Keywords),
				DryRun:     dryRunFlag,
				CountOnly:  countOnlyFlag,
				PromoPacer: flags.pacer(cfg.Classify.PromoDelay),
				OtherPacer: flags.pacer(cfg.Classify.OtherDelay),
				Logger:     logger,
			})
			printClassifyReport(cmd.OutOrStdout(), report, cfg.Classify.Label, dryRunFlag || countOnlyFlag)
			return err
		},
	}

	cmd.Flags().StringVar(&mailboxFlag, "mailbox", "", "mailbox to scan (default from config, INBOX)")
	cmd.Flags().StringVar(&labelFlag, "label", "", "label applied to promotional messages (default from config, Promo)")
	cmd.Flags().StringSliceVar(&keywordsFlag, "keyword", nil, "subject keyword (repeatable; replaces the configured list)")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "classify without labeling")
	cmd.Flags().BoolVar(&countOnlyFlag, "count-only", false, "only print totals; implies --dry-run and no delays")
	return cmd
}

func printClassifyReport(w io.Writer, r triage.ClassifyReport, label string, readOnly bool) {
	fmt.Fprintf(w, "Scanned %d messages in %s; %d promotional.\n", r.Scanned, r.Mailbox, r.Promotional)
	if !readOnly {
		fmt.Fprintf(w, "Labeled %d as %q.\n", r.Labeled, label)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d after errors.\n", r.Skipped)
	}
	if r.Aborted {
		fmt.Fprintln(w, "Stopped early; remaining messages were not processed.")
	}
}
