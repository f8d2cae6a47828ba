package sqlite

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestStatementShapes(t *testing.T) {
	d := New()
	const table = "cache_entries"

	if got := d.Get(table); !strings.Contains(got, "expires > ?") ||
		!strings.Contains(got, `"cache_entries"`) {
		t.Errorf("Get: %q", got)
	}
	if got := d.Set(table); !strings.Contains(got, "ON CONFLICT(key) DO UPDATE") {
		t.Errorf("Set: %q", got)
	}
	if got := d.Add(table); !strings.Contains(got, `"cache_entries".expires <= ?`) {
		t.Errorf("Add: %q", got)
	}
	if got := d.Incr(table); !strings.Contains(got, "RETURNING") ||
		!strings.Contains(got, "value_type = 'i'") {
		t.Errorf("Incr: %q", got)
	}
	if got := d.IncrResult(); got != "" {
		t.Errorf("IncrResult should be empty for a RETURNING dialect, got %q", got)
	}
}

func TestIsOverflow(t *testing.T) {
	d := New()

	if !d.IsOverflow(errors.New("SQL logic error: integer overflow (1)")) {
		t.Errorf("IsOverflow missed the sqlite overflow message")
	}
	if d.IsOverflow(errors.New("constraint failed: UNIQUE constraint failed")) {
		t.Errorf("IsOverflow matched an unrelated error")
	}
	if d.IsOverflow(nil) {
		t.Errorf("IsOverflow(nil) = true")
	}
}

func TestOpenFileConcurrentWriters(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pool.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	// every pooled connection must carry the busy timeout, or writers on
	// fresh connections fail with SQLITE_BUSY instead of queuing
	const (
		workers = 16
		perGo   = 50
	)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGo; j++ {
				if _, err := db.Exec(`INSERT INTO t (x) VALUES (?)`, j); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent insert: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != workers*perGo {
		t.Fatalf("count = %d, want %d", n, workers*perGo)
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	// the pool must stay on one connection or each query would see its own
	// private empty database
	if _, err := db.Exec(`CREATE TABLE t (x INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := db.Exec(`INSERT INTO t (x) VALUES (?)`, i); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 5 {
		t.Fatalf("count = %d, want 5", n)
	}
}
