package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
`

// SQLite stores the ledger in a SQLite database (requires CGO). Save makes
// the table match the set in one transaction; recorded_at keeps the time an
// id was first saved.
type SQLite struct {
	path string
	now  func() time.Time
}

// NewSQLite returns a SQLite ledger at path.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path, now: time.Now}
}

func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) open(ctx context.Context) (*sql.DB, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("ledger: creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening sqlite database failed: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: connecting to sqlite database failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: applying schema failed: %w", err)
	}
	return db, nil
}

func (s *SQLite) Load(ctx context.Context) (*Set, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return NewSet(), nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id FROM processed ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: sqlite query failed: %w", err)
	}
	defer rows.Close()

	set := NewSet()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ledger: scanning sqlite row failed: %w", err)
		}
		set.Record(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating sqlite rows failed: %w", err)
	}
	return set, nil
}

func (s *SQLite) Save(ctx context.Context, set *Set) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: beginning transaction failed: %w", err)
	}
	defer tx.Rollback()

	// Rows still at -1 after the upserts are no longer in the set.
	if _, err := tx.ExecContext(ctx, `UPDATE processed SET position = -1`); err != nil {
		return fmt.Errorf("ledger: marking rows failed: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO processed (id, position, recorded_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET position = excluded.position`)
	if err != nil {
		return fmt.Errorf("ledger: preparing insert failed: %w", err)
	}
	defer stmt.Close()

	now := s.now().Unix()
	for i, id := range set.IDs() {
		if _, err := stmt.ExecContext(ctx, id, i, now); err != nil {
			return fmt.Errorf("ledger: inserting %q failed: %w", id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM processed WHERE position < 0`); err != nil {
		return fmt.Errorf("ledger: removing stale rows failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: committing failed: %w", err)
	}
	return nil
}
