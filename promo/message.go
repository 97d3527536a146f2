package promo

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const (
	headerSubject             = "Subject"
	headerFrom                = "From"
	headerListUnsubscribe     = "List-Unsubscribe"
	headerListUnsubscribePost = "List-Unsubscribe-Post"

	mediaTextPlain = "text/plain"
)

// Message is the parsed view of a fetched email that the heuristics need.
// Absent headers are empty strings.
type Message struct {
	Subject             string
	From                string
	ListUnsubscribe     string
	ListUnsubscribePost string

	// TextParts holds the decoded text/plain parts in document order.
	TextParts []string

	// DecodeErr records the first body decoding problem. Parts that failed
	// to decode are left out of TextParts; the message is still usable.
	DecodeErr error
}

// Body returns all text/plain parts concatenated.
func (m Message) Body() string {
	return strings.Join(m.TextParts, "")
}

// DecodeError reports a body part that could not be decoded.
type DecodeError struct {
	Path []int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("promo: decoding part %v: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseMessage parses raw RFC 822 bytes. Header lines without a colon are
// dropped and the remaining headers are still read; that and any body
// problem are recorded in Message.DecodeErr. Only a header block with
// nothing usable left is an error.
func ParseMessage(raw []byte) (Message, error) {
	entity, err := message.Read(bytes.NewReader(raw))
	var headerErr error
	if err != nil && !isBestEffort(err) {
		cleaned, ok := dropMalformedHeaderLines(raw)
		if !ok {
			return Message{}, fmt.Errorf("promo: reading message: %w", err)
		}
		headerErr = err
		entity, err = message.Read(bytes.NewReader(cleaned))
		if err != nil && !isBestEffort(err) {
			return Message{}, fmt.Errorf("promo: reading message: %w", headerErr)
		}
	}

	header := mail.Header{Header: entity.Header}
	msg := Message{
		Subject:             headerText(header, headerSubject),
		From:                headerText(header, headerFrom),
		ListUnsubscribe:     unfold(header.Get(headerListUnsubscribe)),
		ListUnsubscribePost: unfold(header.Get(headerListUnsubscribePost)),
	}
	if headerErr != nil {
		msg.recordDecodeErr(nil, headerErr)
	}

	walkErr := entity.Walk(func(path []int, part *message.Entity, err error) error {
		if err != nil && !isBestEffort(err) {
			msg.recordDecodeErr(path, err)
			return nil
		}
		if part == nil || !isTextPlain(part.Header) {
			return nil
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			msg.recordDecodeErr(path, err)
			return nil
		}
		msg.TextParts = append(msg.TextParts, strings.ToValidUTF8(string(body), ""))
		return nil
	})
	if walkErr != nil {
		msg.recordDecodeErr(nil, walkErr)
	}

	return msg, nil
}

// dropMalformedHeaderLines removes header lines that have no colon, and
// continuation lines that follow a removed line or open the block. The body
// is kept byte for byte. It reports false when nothing was removed.
func dropMalformedHeaderLines(raw []byte) ([]byte, bool) {
	var out bytes.Buffer
	out.Grow(len(raw))
	dropped := false
	kept := false
	rest := raw
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]

		content := bytes.TrimRight(line, "\r\n")
		switch {
		case len(content) == 0:
			out.Write(line)
			out.Write(rest)
			return out.Bytes(), dropped
		case content[0] == ' ' || content[0] == '\t':
			if !kept {
				dropped = true
				continue
			}
		case bytes.IndexByte(content, ':') > 0:
			kept = true
		default:
			dropped = true
			kept = false
			continue
		}
		out.Write(line)
	}
	return out.Bytes(), dropped
}

func (m *Message) recordDecodeErr(path []int, err error) {
	if m.DecodeErr != nil {
		return
	}
	m.DecodeErr = &DecodeError{Path: append([]int(nil), path...), Err: err}
}

// isBestEffort reports errors after which go-message still hands back a
// readable entity: the raw bytes are passed through undecoded.
func isBestEffort(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func isTextPlain(h message.Header) bool {
	if strings.TrimSpace(h.Get("Content-Type")) == "" {
		return true
	}
	mediaType, _, err := h.ContentType()
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, mediaTextPlain)
}

// headerText decodes RFC 2047 encoded words, falling back to the raw value.
func headerText(h mail.Header, key string) string {
	value, err := h.Text(key)
	if err != nil && !message.IsUnknownCharset(err) {
		return strings.TrimSpace(unfold(h.Get(key)))
	}
	return strings.TrimSpace(strings.ToValidUTF8(unfold(value), ""))
}

var unfolder = strings.NewReplacer("\r\n", "", "\n", "")

func unfold(value string) string {
	return unfolder.Replace(value)
}
