// Package triage implements the three promotional-mail flows on top of a
// Store (normally a *gmail.Session):
//
//   - Classify: scan a mailbox, label promotional messages.
//   - Purge: trash every message with a label, then empty the trash.
//   - Unsubscribe: offer the List-Unsubscribe links of a label, remembering
//     handled messages in a ledger.
//
// Every flow is sequential and blocks on each remote call. Per-message
// failures go through a Policy that maps the gmail.ErrorClass of the error
// to SkipItem, AbortLoop or AbortRun. Body decoding problems never reach the
// policy; they only turn a classification signal off. Ledger load and save
// failures are logged and reported, never returned.
package triage
