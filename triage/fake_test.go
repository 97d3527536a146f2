package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/spachava753/promosweep/gmail"
)

// fakeStore is an in-memory Store. Mailboxes hold UIDs; messages are shared
// across mailboxes by UID.
type fakeStore struct {
	mailboxes map[string][]uint32
	messages  map[uint32][]byte
	queries   map[string][]uint32

	fetchErr map[uint32]error
	labelErr map[uint32]error
	moveErr  map[uint32]error
	deleteErr error

	selected  string
	readOnly  bool
	fetched   []uint32
	labels    map[uint32][]string
	trashed   []uint32
	deleted   [][]uint32
	expunges  int
	lastQuery string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		mailboxes: map[string][]uint32{},
		messages:  map[uint32][]byte{},
		queries:   map[string][]uint32{},
		fetchErr:  map[uint32]error{},
		labelErr:  map[uint32]error{},
		moveErr:   map[uint32]error{},
		labels:    map[uint32][]string{},
	}
}

func (f *fakeStore) add(mailbox string, uid uint32, raw string) {
	f.mailboxes[mailbox] = append(f.mailboxes[mailbox], uid)
	f.messages[uid] = []byte(raw)
}

func (f *fakeStore) Select(_ context.Context, mailbox string, readOnly bool) (int, error) {
	uids, ok := f.mailboxes[mailbox]
	if !ok {
		return 0, fmt.Errorf("no mailbox %q", mailbox)
	}
	f.selected = mailbox
	f.readOnly = readOnly
	return len(uids), nil
}

func (f *fakeStore) SearchAll(context.Context) ([]uint32, error) {
	return append([]uint32(nil), f.mailboxes[f.selected]...), nil
}

func (f *fakeStore) SearchRaw(_ context.Context, query string) ([]uint32, error) {
	f.lastQuery = query
	return append([]uint32(nil), f.queries[query]...), nil
}

func (f *fakeStore) Fetch(_ context.Context, uid uint32) ([]byte, error) {
	f.fetched = append(f.fetched, uid)
	if err := f.fetchErr[uid]; err != nil {
		return nil, err
	}
	raw, ok := f.messages[uid]
	if !ok {
		return nil, fmt.Errorf("%w: uid %d", gmail.ErrNotFound, uid)
	}
	return raw, nil
}

func (f *fakeStore) AddLabel(_ context.Context, uid uint32, label string) error {
	if err := f.labelErr[uid]; err != nil {
		return err
	}
	f.labels[uid] = append(f.labels[uid], label)
	return nil
}

func (f *fakeStore) MoveToTrash(_ context.Context, uid uint32) error {
	if err := f.moveErr[uid]; err != nil {
		return err
	}
	f.trashed = append(f.trashed, uid)
	f.mailboxes[gmail.Trash] = append(f.mailboxes[gmail.Trash], uid)
	return nil
}

func (f *fakeStore) Expunge(context.Context) error {
	f.expunges++
	return nil
}

func (f *fakeStore) DeletePermanently(_ context.Context, uids ...uint32) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, append([]uint32(nil), uids...))
	return nil
}

func rawMail(subject string, from string, extraHeaders []string, body string) string {
	headers := []string{"From: " + from, "Subject: " + subject}
	headers = append(headers, extraHeaders...)
	headers = append(headers, "Content-Type: text/plain; charset=utf-8")
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
