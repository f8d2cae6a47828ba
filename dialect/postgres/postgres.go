// Package postgres implements the sqlcache dialect for PostgreSQL via the
// database/sql adapter of github.com/jackc/pgx/v5.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/babbageclunk/sqlcache/dialect"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// numericOutOfRange is SQLSTATE 22003, raised for bigint arithmetic that
// leaves the signed 64-bit range.
const numericOutOfRange = "22003"

type Postgres struct{}

var _ dialect.Dialect = Postgres{}

func New() Postgres { return Postgres{} }

// Open opens a PostgreSQL connection pool through the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func (Postgres) Name() string { return "postgres" }

func (Postgres) CreateTable(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	key VARCHAR(255) NOT NULL PRIMARY KEY,
	value BYTEA NOT NULL,
	value_type CHAR(1) NOT NULL,
	expires BIGINT NOT NULL
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %q (expires)`, table, table),
	}
}

func (Postgres) DropTable(table string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)
}

func (Postgres) Get(table string) string {
	return fmt.Sprintf(`SELECT value, value_type FROM %q WHERE key = $1 AND expires > $2`, table)
}

func (Postgres) GetMany(table string, n int) string {
	return fmt.Sprintf(`SELECT key, value, value_type FROM %q WHERE key IN (%s) AND expires > $%d`,
		table, dialect.Numbered(1, n), n+1)
}

func (Postgres) Set(table string) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires`, table)
}

func (Postgres) SetMany(table string, n int) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES %s
ON CONFLICT (key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires`, table, dialect.NumberedRows(4, n, 1))
}

// Add overwrites only rows that are already expired; a live row makes the
// DO UPDATE a no-op, which surfaces as RowsAffected == 0.
func (Postgres) Add(table string) string {
	return fmt.Sprintf(`INSERT INTO %q (key, value, value_type, expires) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET
	value = excluded.value,
	value_type = excluded.value_type,
	expires = excluded.expires
WHERE %q.expires <= $5`, table, table)
}

func (Postgres) Delete(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key = $1`, table)
}

func (Postgres) DeleteMany(table string, n int) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key IN (%s)`, table, dialect.Numbered(1, n))
}

func (Postgres) Has(table string) string {
	return fmt.Sprintf(`SELECT 1 FROM %q WHERE key = $1 AND expires > $2`, table)
}

// Incr does the arithmetic on the decimal text inside the bytea payload;
// bigint overflow raises SQLSTATE 22003. RETURNING reports the updated row.
func (Postgres) Incr(table string) string {
	return fmt.Sprintf(`UPDATE %q
SET value = convert_to(((convert_from(value, 'UTF8'))::bigint + $1)::text, 'UTF8')
WHERE key = $2 AND value_type = 'i' AND expires > $3
RETURNING (convert_from(value, 'UTF8'))::bigint`, table)
}

func (Postgres) IncrResult() string { return "" }

func (Postgres) ValueType(table string) string {
	return fmt.Sprintf(`SELECT value_type FROM %q WHERE key = $1 AND expires > $2`, table)
}

func (Postgres) DeleteExpired(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE expires <= $1`, table)
}

func (Postgres) Count(table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM %q`, table)
}

func (Postgres) DeleteExcess(table string) string {
	return fmt.Sprintf(`DELETE FROM %q WHERE key IN (SELECT key FROM %q ORDER BY key LIMIT $1)`,
		table, table)
}

func (Postgres) Clear(table string) string {
	return fmt.Sprintf(`DELETE FROM %q`, table)
}

func (Postgres) IsOverflow(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == numericOutOfRange
}
