package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spachava753/promosweep/gmail"
	"github.com/spachava753/promosweep/ledger"
	"github.com/spachava753/promosweep/triage"
)

func newUnsubscribeCmd(flags *globalFlags) *cobra.Command {
	var mailboxFlag, ledgerFlag string
	var yesFlag, mailtoFlag bool

	cmd := &cobra.Command{
		Use:   "unsubscribe",
		Short: "Open the unsubscribe links of labeled messages",
		Long: `unsubscribe walks the label, prints each List-Unsubscribe URL and opens it
in the browser on confirmation. Handled messages are remembered in a ledger
(JSON, or SQLite when the path ends in .db) so later runs skip them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mailbox") {
				cfg.Unsubscribe.Mailbox = mailboxFlag
			}
			if cmd.Flags().Changed("ledger") {
				cfg.Unsubscribe.Ledger = ledgerFlag
			}
			if cmd.Flags().Changed("mailto") {
				cfg.Unsubscribe.Mailto = mailtoFlag
			}

			sess, err := connect(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer logout(sess, logger)

			var prompter triage.Prompter = triage.NewLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if yesFlag {
				prompter = triage.AssumeYes{}
			}
			var mailer triage.Mailer
			if cfg.Unsubscribe.Mailto {
				mailer = gmail.NewSender(credentials(cfg))
			}

			report, err := triage.Unsubscribe(cmd.Context(), sess, ledger.Open(cfg.Unsubscribe.Ledger), triage.UnsubscribeOptions{
				Mailbox:  cfg.Unsubscribe.Mailbox,
				Prompter: prompter,
				Mailer:   mailer,
				Logger:   logger,
			})
			printUnsubscribeReport(cmd.OutOrStdout(), report)
			return err
		},
	}

	cmd.Flags().StringVar(&mailboxFlag, "mailbox", "", "label to scan (default from config, Promo)")
	cmd.Flags().StringVar(&ledgerFlag, "ledger", "", "ledger path (default in the data directory)")
	cmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "open every link without asking")
	cmd.Flags().BoolVar(&mailtoFlag, "mailto", false, "also send unsubscribe emails to mailto: addresses")
	return cmd
}

func printUnsubscribeReport(w io.Writer, r triage.UnsubscribeReport) {
	fmt.Fprintf(w, "Found %d messages in %s; %d already processed, %d without an unsubscribe URL.\n",
		r.Found, r.Mailbox, r.AlreadyProcessed, r.WithoutTargets)
	fmt.Fprintf(w, "Opened %d links, sent %d emails, skipped %d, %d failed.\n", r.Opened, r.Mailed, r.Declined, r.Failed)
	fmt.Fprintf(w, "Recorded %d new messages in the ledger.\n", r.Recorded)
	if r.LedgerErr != nil {
		fmt.Fprintf(w, "Ledger problem: %v\n", r.LedgerErr)
	}
	if r.Aborted {
		fmt.Fprintln(w, "Stopped early; run again to continue.")
	}
}
