package gmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/responses"
)

const (
	gmailIMAPHost    = "imap.gmail.com"
	gmailIMAPAddress = "imap.gmail.com:993"

	// Inbox is the default mailbox scanned by the classifier.
	Inbox = "INBOX"
	// AllMail is the Gmail virtual mailbox holding every message.
	AllMail = "[Gmail]/All Mail"
	// Trash is the Gmail trash mailbox.
	Trash = "[Gmail]/Trash"

	trashLabel = `\Trash`

	// EnvAddress, EnvUser and EnvAppPassword are the environment variables
	// credentials are read from. EnvUser is the fallback for EnvAddress.
	EnvAddress     = "GMAIL_ADDRESS"
	EnvUser        = "GMAIL_USER"
	EnvAppPassword = "GMAIL_APP_PASSWORD"

	defaultTimeout = 60 * time.Second
)

var (
	// ErrConnect wraps dial and login failures. Callers treat it as fatal.
	ErrConnect = errors.New("gmail: connect failed")
	// ErrNotFound is returned by Fetch when the server returned no message
	// for the requested UID.
	ErrNotFound = errors.New("gmail: message not found")
)

// Credentials are the Gmail address and app password used for IMAP and SMTP.
type Credentials struct {
	Address     string
	AppPassword string
}

// CredentialsFromEnv reads GMAIL_ADDRESS (falling back to GMAIL_USER) and
// GMAIL_APP_PASSWORD through lookup. Unset variables leave fields empty.
// Spaces are stripped from the password since Google displays app
// passwords in groups of four.
func CredentialsFromEnv(lookup func(string) (string, bool)) Credentials {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	address := strings.TrimSpace(get(EnvAddress))
	if address == "" {
		address = strings.TrimSpace(get(EnvUser))
	}
	return Credentials{
		Address:     address,
		AppPassword: NormalizeAppPassword(get(EnvAppPassword)),
	}
}

// LoadCredentials reads credentials from the process environment and
// requires both fields.
func LoadCredentials() (Credentials, error) {
	creds := CredentialsFromEnv(os.LookupEnv)
	if creds.Address == "" {
		return Credentials{}, fmt.Errorf("gmail: %s is required", EnvAddress)
	}
	if creds.AppPassword == "" {
		return Credentials{}, fmt.Errorf("gmail: %s is required", EnvAppPassword)
	}
	return creds, nil
}

// NormalizeAppPassword removes the grouping spaces from an app password.
func NormalizeAppPassword(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), " ", "")
}

// Validate reports whether both fields are populated.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("gmail: address is required")
	}
	if c.AppPassword == "" {
		return errors.New("gmail: app password is required")
	}
	return nil
}

type dialOptions struct {
	address   string
	tlsConfig *tls.Config
	timeout   time.Duration
}

// Option customizes Dial.
type Option func(*dialOptions)

// WithAddress overrides the IMAP server address (host:port).
func WithAddress(address string) Option {
	return func(o *dialOptions) {
		if address = strings.TrimSpace(address); address != "" {
			o.address = address
		}
	}
}

// WithTimeout sets the per-command timeout of the IMAP connection.
func WithTimeout(timeout time.Duration) Option {
	return func(o *dialOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithTLSConfig overrides the TLS configuration used for the IMAP dial.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *dialOptions) {
		o.tlsConfig = cfg
	}
}

// Session is a logged-in Gmail IMAP connection. Message identifiers are UIDs
// of the currently selected mailbox.
//
// A Session is not safe for concurrent use; every call blocks until the
// server answers.
type Session struct {
	client  *client.Client
	mailbox string
}

// Dial connects to Gmail over TLS and logs in. On login failure the
// connection is logged out before returning. All returned errors wrap
// ErrConnect.
func Dial(ctx context.Context, creds Credentials, opts ...Option) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	o := dialOptions{address: gmailIMAPAddress, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tlsConfig == nil {
		host, _, err := net.SplitHostPort(o.address)
		if err != nil {
			host = gmailIMAPHost
		}
		o.tlsConfig = &tls.Config{ServerName: host}
	}

	dialer := &net.Dialer{Timeout: o.timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	imapClient, err := client.DialWithDialerTLS(dialer, o.address, o.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: IMAP dial %s: %w", ErrConnect, o.address, err)
	}
	imapClient.Timeout = o.timeout

	if err := imapClient.Login(creds.Address, creds.AppPassword); err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("%w: IMAP login: %w", ErrConnect, err)
	}

	return &Session{client: imapClient}, nil
}

// Mailbox returns the name of the selected mailbox, or "" if none.
func (s *Session) Mailbox() string {
	return s.mailbox
}

// Select opens mailbox and returns the number of messages it holds.
func (s *Session) Select(ctx context.Context, mailbox string, readOnly bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	status, err := s.client.Select(mailbox, readOnly)
	if err != nil {
		return 0, fmt.Errorf("gmail: selecting mailbox %q failed: %w", mailbox, err)
	}
	s.mailbox = mailbox
	return int(status.Messages), nil
}

// SearchAll returns the UIDs of every message in the selected mailbox in
// ascending order.
func (s *Session) SearchAll(ctx context.Context) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uids, err := s.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return nil, fmt.Errorf("gmail: searching %q failed: %w", s.mailbox, err)
	}
	return uids, nil
}

// SearchRaw runs a Gmail search expression (the same syntax as the web UI
// search box, e.g. "label:Promo") through the X-GM-RAW extension.
func (s *Session) SearchRaw(ctx context.Context, query string) ([]uint32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("gmail: search query is required")
	}
	return s.searchXGM(ctx, "X-GM-RAW", quoteString(query))
}

func (s *Session) searchXGM(ctx context.Context, atom string, value string) ([]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	searchCmd := &gmailSearch{Atom: atom, Value: value}
	searchResp := &responses.Search{}
	if err := s.execute(searchCmd, searchResp); err != nil {
		return nil, fmt.Errorf("gmail: searching %s failed: %w", atom, err)
	}
	return searchResp.Ids, nil
}

// Fetch returns the full RFC 822 bytes of uid without setting \Seen.
func (s *Session) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if raw != nil || readErr != nil {
			continue
		}
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		raw, readErr = io.ReadAll(literal)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("gmail: fetching uid %d failed: %w", uid, err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("gmail: reading uid %d failed: %w", uid, readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: uid %d in %q", ErrNotFound, uid, s.mailbox)
	}
	return raw, nil
}

// AddLabel attaches a Gmail label to uid.
func (s *Session) AddLabel(ctx context.Context, uid uint32, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return errors.New("gmail: label is required")
	}
	if err := s.addLabels(ctx, uid, label); err != nil {
		return fmt.Errorf("gmail: labeling uid %d as %q failed: %w", uid, label, err)
	}
	return nil
}

// MoveToTrash attaches the \Trash system label to uid, which Gmail treats
// as a move to [Gmail]/Trash.
func (s *Session) MoveToTrash(ctx context.Context, uid uint32) error {
	if err := s.addLabels(ctx, uid, trashLabel); err != nil {
		return fmt.Errorf("gmail: trashing uid %d failed: %w", uid, err)
	}
	return nil
}

func (s *Session) addLabels(ctx context.Context, uid uint32, labels ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	return s.execute(&gmailAddLabels{SeqSet: seqSet, Labels: labels}, nil)
}

// Expunge permanently removes messages flagged \Deleted from the selected
// mailbox.
func (s *Session) Expunge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Expunge(nil); err != nil {
		return fmt.Errorf("gmail: expunging %q failed: %w", s.mailbox, err)
	}
	return nil
}

// DeletePermanently flags uids \Deleted. The messages are removed on the
// next Expunge.
func (s *Session) DeletePermanently(ctx context.Context, uids ...uint32) error {
	if len(uids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	storeItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqSet, storeItem, []any{imap.DeletedFlag}, nil); err != nil {
		return fmt.Errorf("gmail: flagging %d messages deleted failed: %w", len(uids), err)
	}
	return nil
}

// Logout ends the session and closes the connection.
func (s *Session) Logout() error {
	if s == nil || s.client == nil {
		return nil
	}
	err := s.client.Logout()
	if errors.Is(err, client.ErrAlreadyLoggedOut) {
		return nil
	}
	return err
}

// execute runs a raw command and turns NO/BAD completions into errors.
// Client.Execute only reports transport failures on its own.
func (s *Session) execute(cmd imap.Commander, h responses.Handler) error {
	status, err := s.client.Execute(cmd, h)
	if err != nil {
		return err
	}
	if status == nil {
		return fmt.Errorf("gmail: connection closed during command: %w", io.ErrUnexpectedEOF)
	}
	return status.Err()
}

type gmailSearch struct {
	Atom  string
	Value string
}

func (s *gmailSearch) Command() *imap.Command {
	return &imap.Command{
		Name:      "UID SEARCH",
		Arguments: []any{imap.RawString(s.Atom + " " + s.Value)},
	}
}

type gmailAddLabels struct {
	SeqSet *imap.SeqSet
	Labels []string
}

func (s *gmailAddLabels) Command() *imap.Command {
	quoted := make([]string, 0, len(s.Labels))
	for _, label := range s.Labels {
		quoted = append(quoted, labelArg(label))
	}

	return &imap.Command{
		Name:      "UID STORE",
		Arguments: []any{s.SeqSet, imap.RawString("+X-GM-LABELS"), imap.RawString("(" + strings.Join(quoted, " ") + ")")},
	}
}

// labelArg sends plain atoms and system labels such as \Trash as is and
// quotes everything else.
func labelArg(label string) string {
	if isAtom(label) || (strings.HasPrefix(label, `\`) && isAtom(label[1:])) {
		return label
	}
	return quoteString(label)
}

// isAtom reports whether value is a non-empty RFC 3501 atom.
func isAtom(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c <= ' ' || c >= 0x7f || strings.IndexByte(`(){%*"\]`, c) >= 0 {
			return false
		}
	}
	return true
}

// quoteString renders value as an IMAP quoted string.
func quoteString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
