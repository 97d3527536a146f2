// Package promo parses fetched messages and decides whether they look
// promotional.
//
// ParseMessage extracts the Subject, From and List-Unsubscribe headers and
// the text/plain body parts (github.com/emersion/go-message, with charset
// conversion). Body decoding is best effort: bytes that are not valid UTF-8
// are dropped and a part that cannot be decoded is skipped and noted in
// Message.DecodeErr.
//
// A Classifier fires on the first of:
//
//  1. the subject contains a keyword ("deal", "discount", "offer" by default);
//  2. a text/plain part contains "unsubscribe";
//  3. the From header contains "noreply@".
package promo
