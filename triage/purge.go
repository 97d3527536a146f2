package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/spachava753/promosweep/gmail"
	"github.com/spachava753/promosweep/ledger"
)

// DefaultBatchSize is how many trash messages are deleted per expunge.
const DefaultBatchSize = 100

// PurgeOptions configures Purge.
type PurgeOptions struct {
	// Label whose messages are purged. Required.
	Label string
	// SourceMailbox is searched for Label. Defaults to gmail.AllMail.
	SourceMailbox string
	// TrashMailbox defaults to gmail.Trash.
	TrashMailbox string
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int

	// DryRun only reports how many messages carry Label.
	DryRun bool

	// LedgerPath is removed after the trash is emptied unless KeepLedger is
	// set; the ids it holds point at messages that no longer exist.
	LedgerPath string
	KeepLedger bool

	// Pacer runs after each move to trash.
	Pacer Pacer

	Policy Policy
	Logger *log.Logger
}

// PurgeReport summarizes a Purge run.
type PurgeReport struct {
	Matched       int
	Trashed       int
	Failed        int
	TrashSize     int
	Deleted       int
	Batches       int
	LedgerRemoved bool
	Aborted       bool
}

// Purge moves every message carrying the label to the trash, expunges, and
// then permanently deletes everything in the trash in batches. This empties
// the whole trash, not only the purged messages.
func Purge(ctx context.Context, store Store, opts PurgeOptions) (PurgeReport, error) {
	logger := orDiscard(opts.Logger)
	policy := orDefault(opts.Policy)

	label := strings.TrimSpace(opts.Label)
	if label == "" {
		return PurgeReport{}, errors.New("triage: label is required")
	}
	source := strings.TrimSpace(opts.SourceMailbox)
	if source == "" {
		source = gmail.AllMail
	}
	trash := strings.TrimSpace(opts.TrashMailbox)
	if trash == "" {
		trash = gmail.Trash
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var report PurgeReport

	if _, err := store.Select(ctx, source, opts.DryRun); err != nil {
		return report, err
	}
	uids, err := store.SearchRaw(ctx, LabelQuery(label))
	if err != nil {
		return report, err
	}
	report.Matched = len(uids)
	logger.Info("found labeled messages", "label", label, "count", len(uids))
	if opts.DryRun {
		return report, nil
	}

	var abortErr error
	for _, uid := range uids {
		if err := store.MoveToTrash(ctx, uid); err != nil {
			action := itemFailed(logger, policy, "move to trash", uid, err)
			if action == AbortRun {
				return report, fmt.Errorf("triage: trashing uid %d: %w", uid, err)
			}
			if action == AbortLoop {
				abortErr = fmt.Errorf("%w: trashing uid %d: %w", ErrAborted, uid, err)
				break
			}
			report.Failed++
			continue
		}
		report.Trashed++
		logger.Debug("moved to trash", "uid", uid)
		if err := opts.Pacer.Wait(ctx); err != nil {
			return report, err
		}
	}
	if abortErr != nil {
		report.Aborted = true
		return report, abortErr
	}

	if _, err := store.Select(ctx, trash, false); err != nil {
		return report, err
	}
	if err := store.Expunge(ctx); err != nil {
		return report, err
	}
	logger.Info("moved to trash and expunged", "trashed", report.Trashed, "failed", report.Failed)

	trashUIDs, err := store.SearchAll(ctx)
	if err != nil {
		return report, err
	}
	report.TrashSize = len(trashUIDs)

	totalBatches := (len(trashUIDs) + batchSize - 1) / batchSize
	for start := 0; start < len(trashUIDs); start += batchSize {
		batch := trashUIDs[start:min(start+batchSize, len(trashUIDs))]
		err := store.DeletePermanently(ctx, batch...)
		if err == nil {
			err = store.Expunge(ctx)
		}
		if err != nil {
			action := itemFailed(logger, policy, "delete batch", batch[0], err)
			if action == AbortRun {
				return report, fmt.Errorf("triage: deleting trash batch: %w", err)
			}
			if action == AbortLoop {
				report.Aborted = true
				return report, fmt.Errorf("%w: deleting trash batch: %w", ErrAborted, err)
			}
			continue
		}
		report.Batches++
		report.Deleted += len(batch)
		logger.Info("trash batch deleted", "batch", start/batchSize+1, "of", totalBatches, "messages", len(batch))
	}
	logger.Info("trash emptied", "deleted", report.Deleted)

	if opts.LedgerPath != "" && !opts.KeepLedger {
		if err := ledger.Remove(opts.LedgerPath); err != nil {
			logger.Warn("could not remove ledger", "path", opts.LedgerPath, "error", err)
		} else {
			report.LedgerRemoved = true
			logger.Info("ledger removed", "path", opts.LedgerPath)
		}
	}

	return report, nil
}

// LabelQuery renders a Gmail search expression matching a user label.
// Gmail search spells spaces in label names as hyphens.
func LabelQuery(label string) string {
	return "label:" + strings.ReplaceAll(strings.TrimSpace(label), " ", "-")
}
