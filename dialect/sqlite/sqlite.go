// Package sqlite implements the sqlcache dialect for SQLite via
// modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/babbageclunk/sqlcache/dialect"
	_ "modernc.org/sqlite"
)

type SQLite struct{}

var _ dialect.Dialect = SQLite{}

func New() SQLite { return SQLite{} }

// Open opens a SQLite database with the pragmas the cache relies on (WAL
// journaling for concurrent readers, a busy timeout so concurrent writers
// queue instead of failing). The pragmas travel in the DSN because the
// driver applies DSN pragmas to every connection the pool opens; a plain
// PRAGMA exec would configure only the one connection that ran it. An empty
// path means an in-memory database; the pool is then pinned to one
// connection because each SQLite connection gets its own private in-memory
// database.
func Open(path string) (*sql.DB, error) {
	mem := path == "" || path == ":memory:"
	var dsn string
	if mem {
		dsn = "file::memory:?_pragma=busy_timeout(5000)"
	} else {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if mem {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) CreateTable(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	key TEXT NOT NULL PRIMARY KEY,
	value BLOB NOT NULL,
	value_type TEXT NOT NULL,
	expires INTEGER NOT NULL
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %q (expires)`, table, table),
	}
}

func (SQLite) DropTable(table string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)
}

func (SQLite) Get(table string) string {
	return fmt.Sprintf(`SELECT value, value_type FROM %q WHERE key = ? AND expires > ?`, table)
}

func (SQLite) GetMany(table string, n int) string {
	return fmt.Sprintf(`SELECT key, value, value_type FROM %q WHERE key IN (%s) AND expires > ?`,
		table, dialect.Marks(n))
}

func (SQLite) Set(table string) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires`, table)
}

func (SQLite) SetMany(table string, n int) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES %s
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires`, table, dialect.MarkRows(4, n))
}

// Add overwrites only rows that are already expired; a live row makes the
// DO UPDATE a no-op, which surfaces as RowsAffected == 0.
func (SQLite) Add(table string) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires
WHERE %q.expires <= ?`, table, table)
}

func (SQLite) Delete(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key = ?`, table)
}

func (SQLite) DeleteMany(table string, n int) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key IN (%s)`, table, dialect.Marks(n))
}

func (SQLite) Has(table string) string {
	return fmt.Sprintf(`SELECT 1 FROM %q WHERE key = ? AND expires > ?`, table)
}

// Incr relies on SQLite raising "integer overflow" for 64-bit arithmetic
// that leaves the signed range, and on RETURNING reporting the updated row.
func (SQLite) Incr(table string) string {
	return fmt.Sprintf(`UPDATE %q
SET value = CAST(CAST(value AS INTEGER) + ? AS TEXT)
WHERE key = ? AND value_type = 'i' AND expires > ?
RETURNING CAST(value AS INTEGER)`, table)
}

func (SQLite) IncrResult() string { return "" }

func (SQLite) ValueType(table string) string {
	return fmt.Sprintf(`SELECT value_type FROM %q WHERE key = ? AND expires > ?`, table)
}

func (SQLite) DeleteExpired(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE expires <= ?`, table)
}

func (SQLite) Count(table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)
}

func (SQLite) DeleteExcess(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key IN (SELECT key FROM %q ORDER BY key LIMIT ?)`,
		table, table)
}

func (SQLite) Clear(table string) string {
	return fmt.Sprintf(`DELETE FROM %q`, table)
}

func (SQLite) IsOverflow(err error) bool {
	return err != nil && strings.Contains(err.Error(), "integer overflow")
}
