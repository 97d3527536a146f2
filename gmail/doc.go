// Package gmail is the Gmail mail-store boundary used by promosweep.
//
// It wraps a single IMAP connection (github.com/emersion/go-imap) behind a
// Session exposing the handful of operations the triage flows need:
//
//   - Select: open a mailbox or label.
//   - SearchAll / SearchRaw: list UIDs, optionally with a Gmail X-GM-RAW query.
//   - Fetch: download the full RFC 822 message.
//   - AddLabel / MoveToTrash: mutate Gmail labels with X-GM-LABELS.
//   - DeletePermanently / Expunge: flag \Deleted and remove.
//   - Logout: end the session.
//
// Sender delivers plain-text mail over Gmail SMTP, used for mailto
// unsubscribe requests.
//
// # Authentication
//
// Runtime credentials are read from environment variables:
//
//   - GMAIL_ADDRESS (GMAIL_USER is accepted as a fallback)
//   - GMAIL_APP_PASSWORD
//
// # Errors
//
// Classify maps any error from this package to an ErrorClass:
//
//   - ClassTransient: the server rejected one command (NO/BAD) or a message
//     disappeared. Skip the message and continue.
//   - ClassAbort: the server said BYE or the connection dropped. Stop the
//     current loop.
//   - ClassFatal: dial/login failed (ErrConnect) or the context ended.
//
// Minimal example (label every message in the inbox):
//
//	sess, err := gmail.Dial(ctx, creds)
//	if err != nil { /* handle */ }
//	defer sess.Logout()
//
//	if _, err := sess.Select(ctx, gmail.Inbox, false); err != nil { /* handle */ }
//	uids, err := sess.SearchAll(ctx)
//	if err != nil { /* handle */ }
//	for _, uid := range uids {
//		if err := sess.AddLabel(ctx, uid, "Promo"); err != nil { /* handle */ }
//	}
package gmail
