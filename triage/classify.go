package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/spachava753/promosweep/gmail"
	"github.com/spachava753/promosweep/promo"
)

// ClassifyOptions configures Classify.
type ClassifyOptions struct {
	// Mailbox to scan. Defaults to gmail.Inbox.
	Mailbox string
	// Label added to promotional messages. Required unless CountOnly.
	Label string
	// Classifier defaults to promo.DefaultClassifier when it has no keywords.
	Classifier promo.Classifier

	// DryRun classifies without labeling.
	DryRun bool
	// CountOnly classifies without labeling or pacing and only reports
	// totals.
	CountOnly bool

	// PromoPacer runs after each promotional message, OtherPacer after
	// each other message.
	PromoPacer Pacer
	OtherPacer Pacer

	Policy Policy
	Logger *log.Logger
}

// ClassifyReport summarizes a Classify run.
type ClassifyReport struct {
	Mailbox     string
	Scanned     int
	Promotional int
	Labeled     int
	Skipped     int
	Aborted     bool
}

// Classify scans a mailbox and labels every promotional message.
func Classify(ctx context.Context, store Store, opts ClassifyOptions) (ClassifyReport, error) {
	logger := orDiscard(opts.Logger)
	policy := orDefault(opts.Policy)

	mailbox := strings.TrimSpace(opts.Mailbox)
	if mailbox == "" {
		mailbox = gmail.Inbox
	}
	label := strings.TrimSpace(opts.Label)
	if label == "" && !opts.CountOnly {
		return ClassifyReport{}, errors.New("triage: label is required")
	}
	classifier := opts.Classifier
	if len(classifier.Keywords) == 0 && classifier.BodyMarker == "" && classifier.SenderMarker == "" {
		classifier = promo.DefaultClassifier()
	}
	mutate := !opts.DryRun && !opts.CountOnly

	report := ClassifyReport{Mailbox: mailbox}

	if _, err := store.Select(ctx, mailbox, !mutate); err != nil {
		return report, err
	}
	uids, err := store.SearchAll(ctx)
	if err != nil {
		return report, err
	}
	logger.Info("found messages", "mailbox", mailbox, "count", len(uids))

	var abortErr error
	for _, uid := range uids {
		raw, err := store.Fetch(ctx, uid)
		if err != nil {
			switch itemFailed(logger, policy, "fetch", uid, err) {
			case AbortRun:
				return report, fmt.Errorf("triage: fetching uid %d: %w", uid, err)
			case AbortLoop:
				abortErr = fmt.Errorf("%w: fetching uid %d: %w", ErrAborted, uid, err)
			default:
				report.Skipped++
				continue
			}
			break
		}
		report.Scanned++

		verdict := classifyRaw(logger, classifier, uid, raw)
		if !verdict.Promotional() {
			logger.Debug("not promotional", "uid", uid)
			if mutate {
				if err := opts.OtherPacer.Wait(ctx); err != nil {
					return report, err
				}
			}
			continue
		}
		report.Promotional++

		if !mutate {
			logger.Info("promotional", "uid", uid, "reason", verdict.Reason, "match", verdict.Match)
			continue
		}

		if err := store.AddLabel(ctx, uid, label); err != nil {
			action := itemFailed(logger, policy, "label", uid, err)
			if action == AbortRun {
				return report, fmt.Errorf("triage: labeling uid %d: %w", uid, err)
			}
			if action == AbortLoop {
				abortErr = fmt.Errorf("%w: labeling uid %d: %w", ErrAborted, uid, err)
				break
			}
			report.Skipped++
		} else {
			report.Labeled++
			logger.Info("labeled", "uid", uid, "label", label, "reason", verdict.Reason, "match", verdict.Match)
		}

		if err := opts.PromoPacer.Wait(ctx); err != nil {
			return report, err
		}
	}

	if abortErr != nil {
		report.Aborted = true
		return report, abortErr
	}
	logger.Info("classification complete", "mailbox", mailbox, "scanned", report.Scanned, "promotional", report.Promotional, "labeled", report.Labeled, "skipped", report.Skipped)
	return report, nil
}

// classifyRaw parses and classifies one message. A message whose headers
// cannot be parsed is treated as having no signals.
func classifyRaw(logger *log.Logger, classifier promo.Classifier, uid uint32, raw []byte) promo.Verdict {
	msg, err := promo.ParseMessage(raw)
	if err != nil {
		logger.Debug("unparseable message", "uid", uid, "error", err)
		return promo.Verdict{}
	}
	if msg.DecodeErr != nil {
		logger.Debug("body partially decoded", "uid", uid, "error", msg.DecodeErr)
	}
	return classifier.Classify(msg)
}
