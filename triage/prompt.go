package triage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spachava753/promosweep/browser"
)

// TargetKind tells a Prompter what confirming will do.
type TargetKind string

const (
	TargetURL    TargetKind = "url"
	TargetMailto TargetKind = "mailto"
)

// Prompt describes one unsubscribe target awaiting confirmation.
type Prompt struct {
	ID      string
	Subject string
	Kind    TargetKind
	Target  string
}

// Prompter asks the user whether to act on an unsubscribe target.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// AssumeYes confirms every prompt.
type AssumeYes struct{}

func (AssumeYes) Confirm(context.Context, Prompt) (bool, error) {
	return true, nil
}

// LinePrompter reads one line per prompt. Anything other than "skip"
// (case-insensitive) confirms, so a bare Enter opens the link. End of
// input answers skip.
type LinePrompter struct {
	mu     sync.Mutex
	in     *bufio.Reader
	out    io.Writer
	lastID string
}

// NewLinePrompter returns a LinePrompter reading from in and writing to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (l *LinePrompter) Confirm(ctx context.Context, p Prompt) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.ID != l.lastID {
		fmt.Fprintf(l.out, "\nEmail ID %s: %s\n", p.ID, p.Subject)
		l.lastID = p.ID
	}
	switch p.Kind {
	case TargetMailto:
		fmt.Fprintf(l.out, "Found unsubscribe address: %s\n", p.Target)
		fmt.Fprint(l.out, "Press Enter to send an unsubscribe email (or type 'skip' to skip): ")
	default:
		fmt.Fprintf(l.out, "Found unsubscribe URL: %s\n", p.Target)
		fmt.Fprint(l.out, "Press Enter to open this unsubscribe link in your browser (or type 'skip' to skip): ")
	}

	line, err := l.readLine(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		fmt.Fprintln(l.out)
		return false, ctxErr
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("triage: reading answer: %w", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(l.out)
		return false, nil
	}
	return !strings.EqualFold(strings.TrimSpace(line), "skip"), nil
}

type readResult struct {
	line string
	err  error
}

// readLine returns early when ctx is done. The abandoned read finishes in
// the background and its line is discarded.
func (l *LinePrompter) readLine(ctx context.Context) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		line, err := l.in.ReadString('\n')
		done <- readResult{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.line, r.err
	}
}

// Opener performs the browser side effect for a confirmed URL.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// BrowserOpener opens URLs with browser.OpenURL.
var BrowserOpener Opener = OpenerFunc(func(_ context.Context, url string) error {
	return browser.OpenURL(url)
})

// Mailer sends mailto unsubscribe requests. *gmail.Sender implements it.
type Mailer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
