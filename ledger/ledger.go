// Package ledger persists the set of message identifiers the unsubscribe
// flow has already handled, so a later run never prompts for them again.
//
// Two backends exist: a JSON array file (the default) and a SQLite database,
// picked by Open from the path extension.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store loads and saves a Set.
type Store interface {
	// Load returns the persisted set. A store that does not exist yet loads
	// as an empty set without error.
	Load(ctx context.Context) (*Set, error)
	// Save replaces the persisted contents with set.
	Save(ctx context.Context, set *Set) error
	// Path is where the store lives, for messages.
	Path() string
}

// Set is an insertion-ordered set of identifiers. The zero value is empty
// and ready to use.
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet returns a set holding ids, duplicates collapsed.
func NewSet(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		s.Record(id)
	}
	return s
}

// Contains reports whether id was recorded.
func (s *Set) Contains(id string) bool {
	if s == nil || s.index == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Record adds id. Recording an id twice has no further effect. It reports
// whether id was new.
func (s *Set) Record(id string) bool {
	if s.Contains(id) {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Len returns the number of distinct ids.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the ids in the order they were first recorded.
func (s *Set) IDs() []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s.ids...)
}

// Open returns the Store for path: SQLite for .db, .sqlite and .sqlite3
// files, JSON otherwise.
func Open(path string) Store {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return &SQLite{path: path}
	default:
		return &JSONFile{path: path}
	}
}

// Remove deletes the ledger at path. A missing ledger is not an error.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("ledger: path is required")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ledger: removing %s: %w", path, err)
	}
	return nil
}
