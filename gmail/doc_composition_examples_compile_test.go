package gmail_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spachava753/promosweep/gmail"
	"github.com/spachava753/promosweep/ledger"
	"github.com/spachava753/promosweep/promo"
	"github.com/spachava753/promosweep/unsubscribe"
)

// These functions are never run. They keep the composition patterns from the
// package docs compiling against the current API.

func composeCountPromotionalSenders(ctx context.Context, mailbox string) (map[string]int, error) {
	creds, err := gmail.LoadCredentials()
	if err != nil {
		return nil, err
	}
	sess, err := gmail.Dial(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer sess.Logout()

	if _, err := sess.Select(ctx, mailbox, true); err != nil {
		return nil, err
	}
	uids, err := sess.SearchAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, uid := range uids {
		raw, err := sess.Fetch(ctx, uid)
		if errors.Is(err, gmail.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		msg, err := promo.ParseMessage(raw)
		if err != nil || !promo.IsPromotional(msg) {
			continue
		}
		counts[senderDomain(msg.From)]++
	}
	return counts, nil
}

func composeLabelByGmailSearch(ctx context.Context, sess *gmail.Session, query string, label string) (int, error) {
	if _, err := sess.Select(ctx, gmail.AllMail, false); err != nil {
		return 0, err
	}
	uids, err := sess.SearchRaw(ctx, query)
	if err != nil {
		return 0, err
	}

	labeled := 0
	for _, uid := range uids {
		err := sess.AddLabel(ctx, uid, label)
		switch gmail.Classify(err) {
		case gmail.ClassNone:
			labeled++
		case gmail.ClassTransient:
			continue
		default:
			return labeled, err
		}
	}
	return labeled, nil
}

func composeCollectUnsubscribeTargets(ctx context.Context, sess *gmail.Session, label string, led ledger.Store) (map[string][]string, error) {
	if _, err := sess.Select(ctx, label, true); err != nil {
		return nil, err
	}
	uids, err := sess.SearchAll(ctx)
	if err != nil {
		return nil, err
	}
	seen, err := led.Load(ctx)
	if err != nil {
		seen = ledger.NewSet()
	}

	targets := map[string][]string{}
	for _, uid := range uids {
		id := strconv.FormatUint(uint64(uid), 10)
		if seen.Contains(id) {
			continue
		}
		raw, err := sess.Fetch(ctx, uid)
		if err != nil {
			return targets, err
		}
		msg, err := promo.ParseMessage(raw)
		if err != nil {
			continue
		}
		links := unsubscribe.URLs(msg.ListUnsubscribe)
		for _, m := range unsubscribe.Mailtos(msg.ListUnsubscribe) {
			links = append(links, "mailto:"+m.Address)
		}
		if len(links) > 0 {
			targets[id] = links
		}
	}
	return targets, nil
}

func composeMailtoUnsubscribe(ctx context.Context, creds gmail.Credentials, listUnsubscribe string) (int, error) {
	sender := gmail.NewSender(creds)
	sent := 0
	for _, m := range unsubscribe.Mailtos(listUnsubscribe) {
		subject := m.Subject
		if subject == "" {
			subject = "unsubscribe"
		}
		if err := sender.Send(ctx, m.Address, subject, m.Body); err != nil {
			return sent, fmt.Errorf("mailto %s: %w", m.Address, err)
		}
		sent++
	}
	return sent, nil
}

func composeEmptyTrash(ctx context.Context, sess *gmail.Session, batchSize int) (int, error) {
	if _, err := sess.Select(ctx, gmail.Trash, false); err != nil {
		return 0, err
	}
	uids, err := sess.SearchAll(ctx)
	if err != nil {
		return 0, err
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	deleted := 0
	for start := 0; start < len(uids); start += batchSize {
		batch := uids[start:min(start+batchSize, len(uids))]
		if err := sess.DeletePermanently(ctx, batch...); err != nil {
			return deleted, err
		}
		if err := sess.Expunge(ctx); err != nil {
			return deleted, err
		}
		deleted += len(batch)
	}
	return deleted, nil
}

func senderDomain(from string) string {
	from = strings.TrimSuffix(strings.TrimSpace(from), ">")
	if at := strings.LastIndex(from, "@"); at >= 0 {
		return strings.ToLower(from[at+1:])
	}
	return strings.ToLower(from)
}

var (
	_ = composeCountPromotionalSenders
	_ = composeLabelByGmailSearch
	_ = composeCollectUnsubscribeTargets
	_ = composeMailtoUnsubscribe
	_ = composeEmptyTrash
)
