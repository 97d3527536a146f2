package gmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

const (
	gmailSMTPHost    = "smtp.gmail.com"
	gmailSMTPAddress = "smtp.gmail.com:465"
)

// Sender delivers plain-text mail through Gmail SMTP with the same app
// password used for IMAP.
type Sender struct {
	creds   Credentials
	address string
	host    string
}

// NewSender returns a Sender for creds.
func NewSender(creds Credentials) *Sender {
	return &Sender{creds: creds, address: gmailSMTPAddress, host: gmailSMTPHost}
}

// Send transmits a single plain-text message to one recipient.
func (s *Sender) Send(ctx context.Context, to string, subject string, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("gmail: recipient is required")
	}
	if err := s.creds.Validate(); err != nil {
		return err
	}

	raw := buildPlainMessage(s.creds.Address, to, subject, body, time.Now())

	smtpClient, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer smtpClient.Close()

	if err := smtpClient.Mail(s.creds.Address, nil); err != nil {
		return fmt.Errorf("gmail: MAIL FROM failed: %w", err)
	}
	if err := smtpClient.Rcpt(to, nil); err != nil {
		return fmt.Errorf("gmail: RCPT TO %q failed: %w", to, err)
	}

	writer, err := smtpClient.Data()
	if err != nil {
		return fmt.Errorf("gmail: DATA failed: %w", err)
	}
	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("gmail: writing message failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("gmail: finalizing message failed: %w", err)
	}
	if err := smtpClient.Quit(); err != nil {
		return fmt.Errorf("gmail: QUIT failed: %w", err)
	}
	return nil
}

func (s *Sender) connect(ctx context.Context) (*smtp.Client, error) {
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.host}}
	conn, err := dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return nil, fmt.Errorf("%w: SMTP TLS dial failed: %w", ErrConnect, err)
	}

	smtpClient := smtp.NewClient(conn)
	auth := sasl.NewPlainClient("", s.creds.Address, s.creds.AppPassword)
	if err := smtpClient.Auth(auth); err != nil {
		smtpClient.Close()
		return nil, fmt.Errorf("%w: SMTP auth failed: %w", ErrConnect, err)
	}
	return smtpClient, nil
}

func buildPlainMessage(from string, to string, subject string, body string, now time.Time) []byte {
	subject = sanitizeHeader(subject)
	if subject == "" {
		subject = "unsubscribe"
	}
	headers := []string{
		fmt.Sprintf("From: %s", sanitizeHeader(from)),
		fmt.Sprintf("To: %s", sanitizeHeader(to)),
		fmt.Sprintf("Subject: %s", subject),
		fmt.Sprintf("Date: %s", now.Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: %s", generateMessageID(from, now)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + normalizeBody(body) + "\r\n")
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return strings.TrimSpace(body)
}

func generateMessageID(address string, now time.Time) string {
	domain := "localhost"
	if at := strings.LastIndex(address, "@"); at >= 0 && at < len(address)-1 {
		domain = address[at+1:]
	}
	return fmt.Sprintf("<%d.%s>", now.UnixNano(), domain)
}
