// Package promosweep is a lightweight index for the subpackages in this module.
//
// This root package is documentation-only. Import specific subpackages to use
// concrete helpers, or run the promosweep command.
//
// Available subpackages:
//   - github.com/spachava753/promosweep/gmail
//     IMAP session (select, search, fetch, label, trash, expunge), error
//     classification and the SMTP sender used for mailto unsubscribes.
//   - github.com/spachava753/promosweep/promo
//     MIME parsing and the promotional-message heuristic.
//   - github.com/spachava753/promosweep/unsubscribe
//     List-Unsubscribe header parsing.
//   - github.com/spachava753/promosweep/ledger
//     Persistent set of already-handled message ids (JSON or SQLite).
//   - github.com/spachava753/promosweep/browser
//     Opening URLs in the default browser.
//   - github.com/spachava753/promosweep/triage
//     The classify, purge and unsubscribe flows.
//   - github.com/spachava753/promosweep/config and .../cli
//     TOML/.env configuration and the cobra command tree.
//
// Discovery workflow for agents:
//   - Run: go doc github.com/spachava753/promosweep
//   - Then drill in with:
//     go doc github.com/spachava753/promosweep/gmail
//     go doc github.com/spachava753/promosweep/triage
//     go doc github.com/spachava753/promosweep/promo
package promosweep
