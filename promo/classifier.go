package promo

import (
	"strings"

	"golang.org/x/text/cases"
)

// Reason names the signal that made a message promotional.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonSubjectKeyword  Reason = "subject_keyword"
	ReasonBodyUnsubscribe Reason = "body_unsubscribe"
	ReasonSenderNoReply   Reason = "sender_noreply"
)

// DefaultKeywords are the subject keywords used when none are configured.
var DefaultKeywords = []string{"deal", "discount", "offer"}

const (
	defaultBodyMarker   = "unsubscribe"
	defaultSenderMarker = "noreply@"
)

// Verdict is the outcome of classifying one message.
type Verdict struct {
	Reason Reason
	// Match is the keyword or marker that fired.
	Match string
}

// Promotional reports whether any signal matched.
func (v Verdict) Promotional() bool {
	return v.Reason != ReasonNone
}

// Classifier flags a message as promotional when its subject contains a
// keyword, a text body part contains BodyMarker, or the sender contains
// SenderMarker. All comparisons use Unicode case folding.
type Classifier struct {
	Keywords     []string
	BodyMarker   string
	SenderMarker string
}

// DefaultClassifier returns the stock heuristic.
func DefaultClassifier() Classifier {
	return Classifier{
		Keywords:     append([]string(nil), DefaultKeywords...),
		BodyMarker:   defaultBodyMarker,
		SenderMarker: defaultSenderMarker,
	}
}

// NewClassifier returns the stock heuristic with custom subject keywords.
// Blank keywords are dropped; an empty list falls back to DefaultKeywords.
func NewClassifier(keywords []string) Classifier {
	c := DefaultClassifier()
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) > 0 {
		c.Keywords = cleaned
	}
	return c
}

// Classify checks subject keywords, then the body marker, then the sender.
func (c Classifier) Classify(msg Message) Verdict {
	fold := cases.Fold()

	if subject := fold.String(msg.Subject); subject != "" {
		for _, kw := range c.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(subject, fold.String(kw)) {
				return Verdict{Reason: ReasonSubjectKeyword, Match: kw}
			}
		}
	}

	if c.BodyMarker != "" {
		if body := msg.Body(); body != "" && strings.Contains(fold.String(body), fold.String(c.BodyMarker)) {
			return Verdict{Reason: ReasonBodyUnsubscribe, Match: c.BodyMarker}
		}
	}

	if c.SenderMarker != "" && msg.From != "" {
		if strings.Contains(fold.String(msg.From), fold.String(c.SenderMarker)) {
			return Verdict{Reason: ReasonSenderNoReply, Match: c.SenderMarker}
		}
	}

	return Verdict{}
}

// IsPromotional applies DefaultClassifier to msg.
func IsPromotional(msg Message) bool {
	return DefaultClassifier().Classify(msg).Promotional()
}
