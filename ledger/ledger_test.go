package ledger

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestSetRecordIsIdempotent(t *testing.T) {
	var s Set
	be.True(t, !s.Contains("1"))
	be.True(t, s.Record("1"))
	be.True(t, !s.Record("1"))
	be.True(t, s.Record("2"))
	be.True(t, s.Contains("1"))
	be.Equal(t, s.Len(), 2)
	be.Equal(t, s.IDs(), []string{"1", "2"})
}

func TestNilSet(t *testing.T) {
	var s *Set
	be.True(t, !s.Contains("x"))
	be.Equal(t, s.Len(), 0)
	be.Equal(t, s.IDs(), []string{})
}

func TestNewSetCollapsesDuplicates(t *testing.T) {
	s := NewSet("7", "7", "8", "7")
	be.Equal(t, s.IDs(), []string{"7", "8"})
}

func TestOpenPicksBackend(t *testing.T) {
	_, ok := Open("processed_emails.json").(*JSONFile)
	be.True(t, ok)
	_, ok = Open("ledger").(*JSONFile)
	be.True(t, ok)
	_, ok = Open("/tmp/ledger.DB").(*SQLite)
	be.True(t, ok)
	_, ok = Open("ledger.sqlite3").(*SQLite)
	be.True(t, ok)
}

func TestJSONFileMissingLoadsEmpty(t *testing.T) {
	f := NewJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	set, err := f.Load(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, set.Len(), 0)
}

func TestJSONFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "processed.json")
	f := NewJSONFile(path)

	set := NewSet()
	set.Record("101")
	set.Record("101")
	set.Record("102")
	be.Err(t, f.Save(ctx, set), nil)

	data, err := os.ReadFile(path)
	be.Err(t, err, nil)
	be.Equal(t, string(data), `["101","102"]`)

	reloaded, err := f.Load(ctx)
	be.Err(t, err, nil)
	be.True(t, reloaded.Contains("101"))
	be.True(t, reloaded.Contains("102"))
	be.Equal(t, reloaded.Len(), 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	be.Err(t, err, nil)
	be.Equal(t, len(entries), 1)
}

func TestJSONFileLoadsDuplicatesAsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	be.Err(t, os.WriteFile(path, []byte(`["5","5","6"]`), 0o600), nil)

	set, err := NewJSONFile(path).Load(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, set.IDs(), []string{"5", "6"})
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	be.Err(t, os.WriteFile(path, []byte(`{not json`), 0o600), nil)

	_, err := NewJSONFile(path).Load(context.Background())
	be.True(t, err != nil)
}

func TestJSONFileSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed.json")
	f := NewJSONFile(path)

	be.Err(t, f.Save(ctx, NewSet("1", "2", "3")), nil)
	be.Err(t, f.Save(ctx, NewSet("9")), nil)

	set, err := f.Load(ctx)
	be.Err(t, err, nil)
	be.Equal(t, set.IDs(), []string{"9"})
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))

	empty, err := s.Load(ctx)
	be.Err(t, err, nil)
	be.Equal(t, empty.Len(), 0)

	be.Err(t, s.Save(ctx, NewSet("b", "a")), nil)
	set, err := s.Load(ctx)
	be.Err(t, err, nil)
	be.Equal(t, set.IDs(), []string{"b", "a"})

	set.Record("c")
	set.Record("a")
	be.Err(t, s.Save(ctx, set), nil)
	set, err = s.Load(ctx)
	be.Err(t, err, nil)
	be.Equal(t, set.IDs(), []string{"b", "a", "c"})
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	be.Err(t, os.WriteFile(path, []byte(`[]`), 0o600), nil)

	be.Err(t, Remove(path), nil)
	_, err := os.Stat(path)
	be.True(t, os.IsNotExist(err))

	be.Err(t, Remove(path), nil)
	be.True(t, Remove("") != nil)
}

func TestSQLiteKeepsFirstRecordedTime(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s := NewSQLite(path)

	first := time.Unix(1700000000, 0)
	s.now = func() time.Time { return first }
	be.Err(t, s.Save(ctx, NewSet("a", "b")), nil)

	s.now = func() time.Time { return first.Add(time.Hour) }
	be.Err(t, s.Save(ctx, NewSet("b", "c")), nil)

	db, err := sql.Open("sqlite3", path)
	be.Err(t, err, nil)
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, recorded_at FROM processed ORDER BY position`)
	be.Err(t, err, nil)
	defer rows.Close()
	got := map[string]int64{}
	var order []string
	for rows.Next() {
		var id string
		var at int64
		be.Err(t, rows.Scan(&id, &at), nil)
		got[id] = at
		order = append(order, id)
	}
	be.Err(t, rows.Err(), nil)

	be.Equal(t, order, []string{"b", "c"})
	be.Equal(t, got["b"], first.Unix())
	be.Equal(t, got["c"], first.Add(time.Hour).Unix())
}
