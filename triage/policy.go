package triage

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/spachava753/promosweep/gmail"
)

// ErrAborted is wrapped by flow errors when a loop stopped early and left
// messages unprocessed.
var ErrAborted = errors.New("triage: aborted")

// Store is the remote mail-store capability the flows consume.
// *gmail.Session implements it.
type Store interface {
	Select(ctx context.Context, mailbox string, readOnly bool) (int, error)
	SearchAll(ctx context.Context) ([]uint32, error)
	SearchRaw(ctx context.Context, query string) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) ([]byte, error)
	AddLabel(ctx context.Context, uid uint32, label string) error
	MoveToTrash(ctx context.Context, uid uint32) error
	Expunge(ctx context.Context) error
	DeletePermanently(ctx context.Context, uids ...uint32) error
}

var _ Store = (*gmail.Session)(nil)

// Action is what a flow does after a per-message failure.
type Action int

const (
	// SkipItem logs the failure and moves on to the next message.
	SkipItem Action = iota
	// AbortLoop stops the current loop; remaining messages are left as is.
	AbortLoop
	// AbortRun stops the flow immediately.
	AbortRun
)

func (a Action) String() string {
	switch a {
	case SkipItem:
		return "skip"
	case AbortLoop:
		return "abort-loop"
	case AbortRun:
		return "abort-run"
	default:
		return "unknown"
	}
}

// Policy maps an error class to an Action.
type Policy map[gmail.ErrorClass]Action

// DefaultPolicy skips transient failures, stops the loop when the
// connection is gone and stops the run on fatal errors.
func DefaultPolicy() Policy {
	return Policy{
		gmail.ClassNone:      SkipItem,
		gmail.ClassTransient: SkipItem,
		gmail.ClassAbort:     AbortLoop,
		gmail.ClassFatal:     AbortRun,
	}
}

// Decide returns the Action for err. Classes missing from p use
// DefaultPolicy.
func (p Policy) Decide(err error) Action {
	class := gmail.Classify(err)
	if action, ok := p[class]; ok {
		return action
	}
	return DefaultPolicy()[class]
}

// itemFailed logs a per-message failure and returns the policy decision.
func itemFailed(logger *log.Logger, policy Policy, op string, uid uint32, err error) Action {
	action := policy.Decide(err)
	logger.Warn(op+" failed", "uid", uid, "class", gmail.Classify(err), "action", action, "error", err)
	return action
}

func orDefault(p Policy) Policy {
	if p == nil {
		return DefaultPolicy()
	}
	return p
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard)
	}
	return logger
}
