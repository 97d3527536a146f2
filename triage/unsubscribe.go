package triage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/spachava753/promosweep/ledger"
	"github.com/spachava753/promosweep/promo"
	"github.com/spachava753/promosweep/unsubscribe"
)

// DefaultUnsubscribeMailbox is the label scanned for unsubscribe links.
const DefaultUnsubscribeMailbox = "Promo"

// UnsubscribeOptions configures Unsubscribe.
type UnsubscribeOptions struct {
	// Mailbox (a Gmail label) to scan. Defaults to DefaultUnsubscribeMailbox.
	Mailbox string

	// Prompter confirms each target. Required.
	Prompter Prompter
	// Opener opens confirmed URLs. Defaults to BrowserOpener.
	Opener Opener
	// Mailer, when set, also offers mailto: entries and sends the
	// unsubscribe email on confirmation.
	Mailer Mailer

	Policy Policy
	Logger *log.Logger
}

// UnsubscribeReport summarizes an Unsubscribe run.
type UnsubscribeReport struct {
	Mailbox          string
	Found            int
	AlreadyProcessed int
	WithoutTargets   int
	Opened           int
	Mailed           int
	Declined         int
	Failed           int
	Skipped          int
	Recorded         int
	Aborted          bool
	// LedgerErr is the load or save failure, if any. Ledger failures never
	// fail the run.
	LedgerErr error
}

// Unsubscribe walks a label, offers every List-Unsubscribe target of each
// message not yet in the ledger, and records handled messages. The ledger
// is saved on every exit path once messages have been looked at.
func Unsubscribe(ctx context.Context, store Store, led ledger.Store, opts UnsubscribeOptions) (report UnsubscribeReport, err error) {
	logger := orDiscard(opts.Logger)
	policy := orDefault(opts.Policy)

	if opts.Prompter == nil {
		return report, errors.New("triage: prompter is required")
	}
	if led == nil {
		return report, errors.New("triage: ledger is required")
	}
	opener := opts.Opener
	if opener == nil {
		opener = BrowserOpener
	}
	mailbox := strings.TrimSpace(opts.Mailbox)
	if mailbox == "" {
		mailbox = DefaultUnsubscribeMailbox
	}
	report.Mailbox = mailbox

	if _, err := store.Select(ctx, mailbox, true); err != nil {
		return report, err
	}
	uids, err := store.SearchAll(ctx)
	if err != nil {
		return report, err
	}
	report.Found = len(uids)
	logger.Info("found messages", "mailbox", mailbox, "count", len(uids))

	processed, loadErr := led.Load(ctx)
	if loadErr != nil {
		logger.Warn("could not load ledger, starting empty", "path", led.Path(), "error", loadErr)
		report.LedgerErr = loadErr
		processed = ledger.NewSet()
	}

	defer func() {
		// A cancelled run still persists what it handled.
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := led.Save(saveCtx, processed); saveErr != nil {
			logger.Warn("could not save ledger", "path", led.Path(), "error", saveErr)
			report.LedgerErr = errors.Join(report.LedgerErr, saveErr)
			return
		}
		logger.Debug("ledger saved", "path", led.Path(), "ids", processed.Len())
	}()

	for _, uid := range uids {
		id := strconv.FormatUint(uint64(uid), 10)
		if processed.Contains(id) {
			report.AlreadyProcessed++
			logger.Debug("already processed", "id", id)
			continue
		}

		raw, err := store.Fetch(ctx, uid)
		if err != nil {
			action := itemFailed(logger, policy, "fetch", uid, err)
			if action == AbortRun {
				return report, fmt.Errorf("triage: fetching uid %d: %w", uid, err)
			}
			if action == AbortLoop {
				report.Aborted = true
				return report, fmt.Errorf("%w: fetching uid %d: %w", ErrAborted, uid, err)
			}
			report.Skipped++
			continue
		}

		msg, err := promo.ParseMessage(raw)
		if err != nil {
			logger.Warn("unparseable message", "uid", uid, "error", err)
			report.Skipped++
			continue
		}
		subject := msg.Subject
		if subject == "" {
			subject = "(No Subject)"
		}

		urls := unsubscribe.URLs(msg.ListUnsubscribe)
		var mailtos []unsubscribe.Mailto
		if opts.Mailer != nil {
			mailtos = unsubscribe.Mailtos(msg.ListUnsubscribe)
		}
		if len(urls) == 0 && len(mailtos) == 0 {
			report.WithoutTargets++
			logger.Info("no unsubscribe URL", "id", id, "subject", subject)
			continue
		}
		if unsubscribe.OneClick(msg.ListUnsubscribePost) {
			logger.Debug("sender supports one-click unsubscribe", "id", id)
		}

		for _, url := range urls {
			ok, err := opts.Prompter.Confirm(ctx, Prompt{ID: id, Subject: subject, Kind: TargetURL, Target: url})
			if err != nil {
				return report, err
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if !ok {
				report.Declined++
				continue
			}
			if err := opener.Open(ctx, url); err != nil {
				report.Failed++
				logger.Warn("could not open URL", "id", id, "url", url, "error", err)
				continue
			}
			report.Opened++
			logger.Info("opened unsubscribe URL", "id", id, "url", url)
		}

		for _, m := range mailtos {
			ok, err := opts.Prompter.Confirm(ctx, Prompt{ID: id, Subject: subject, Kind: TargetMailto, Target: m.Address})
			if err != nil {
				return report, err
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if !ok {
				report.Declined++
				continue
			}
			if err := opts.Mailer.Send(ctx, m.Address, mailtoSubject(m), m.Body); err != nil {
				report.Failed++
				logger.Warn("could not send unsubscribe email", "id", id, "to", m.Address, "error", err)
				continue
			}
			report.Mailed++
			logger.Info("sent unsubscribe email", "id", id, "to", m.Address)
		}

		if processed.Record(id) {
			report.Recorded++
		}
	}

	logger.Info("unsubscribe pass complete", "opened", report.Opened, "mailed", report.Mailed, "declined", report.Declined, "recorded", report.Recorded, "already_processed", report.AlreadyProcessed)
	return report, nil
}

func mailtoSubject(m unsubscribe.Mailto) string {
	if s := strings.TrimSpace(m.Subject); s != "" {
		return s
	}
	return "unsubscribe"
}
