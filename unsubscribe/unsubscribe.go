// Package unsubscribe extracts unsubscribe targets from the List-Unsubscribe
// header (RFC 2369) and its one-click companion (RFC 8058).
package unsubscribe

import (
	"net/url"
	"strings"
)

const (
	httpPrefix   = "http"
	mailtoScheme = "mailto"
	oneClickBody = "List-Unsubscribe=One-Click"
)

// URLs returns the http(s) entries of a List-Unsubscribe header value in
// header order. Duplicates are kept. The result is never nil.
//
//	URLs("<mailto:a@b.com>, <http://x.com/u>") // ["http://x.com/u"]
func URLs(header string) []string {
	urls := []string{}
	for _, entry := range entries(header) {
		if strings.HasPrefix(entry, httpPrefix) {
			urls = append(urls, entry)
		}
	}
	return urls
}

// Mailto is a parsed mailto: unsubscribe entry.
type Mailto struct {
	Address string
	Subject string
	Body    string
}

// Mailtos returns the mailto: entries of a List-Unsubscribe header value.
// Entries without an address are dropped.
func Mailtos(header string) []Mailto {
	out := []Mailto{}
	for _, entry := range entries(header) {
		u, err := url.Parse(entry)
		if err != nil || !strings.EqualFold(u.Scheme, mailtoScheme) {
			continue
		}
		address := u.Opaque
		if address == "" {
			address = u.Path
		}
		if unescaped, err := url.PathUnescape(address); err == nil {
			address = unescaped
		}
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}
		query := u.Query()
		out = append(out, Mailto{
			Address: address,
			Subject: query.Get("subject"),
			Body:    query.Get("body"),
		})
	}
	return out
}

// OneClick reports whether a List-Unsubscribe-Post header value advertises
// RFC 8058 one-click unsubscribe.
func OneClick(postHeader string) bool {
	return strings.EqualFold(strings.TrimSpace(postHeader), oneClickBody)
}

// entries splits a header value on commas and strips whitespace and the
// enclosing angle brackets from each entry. Empty entries are dropped.
func entries(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "<>"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
