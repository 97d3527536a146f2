package gmail

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// ErrorClass groups remote failures by how a caller loop should react.
type ErrorClass int

const (
	// ClassNone is returned for a nil error.
	ClassNone ErrorClass = iota
	// ClassTransient failures affect one message: the server answered NO or
	// BAD, or the message vanished between search and fetch.
	ClassTransient
	// ClassAbort failures mean the connection is no longer usable: the
	// server sent BYE or the socket closed.
	ClassAbort
	// ClassFatal failures end the run: connect/login failed or the context
	// was cancelled.
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassTransient:
		return "transient"
	case ClassAbort:
		return "abort"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by this package to its ErrorClass.
// Unrecognized errors are treated as transient.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, ErrConnect) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}

	var statusErr *imap.ErrStatusResp
	if errors.As(err, &statusErr) && statusErr.Resp != nil {
		if statusErr.Resp.Type == imap.StatusRespBye {
			return ClassAbort
		}
		return ClassTransient
	}

	switch {
	case errors.Is(err, client.ErrAlreadyLoggedOut),
		errors.Is(err, client.ErrNotLoggedIn),
		errors.Is(err, client.ErrNoMailboxSelected),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed):
		return ClassAbort
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassAbort
	}

	return ClassTransient
}
