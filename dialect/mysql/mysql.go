// Package mysql implements the sqlcache dialect for MySQL/MariaDB via
// github.com/go-sql-driver/mysql.
package mysql

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/babbageclunk/sqlcache/dialect"
	drv "github.com/go-sql-driver/mysql"
)

// erDataOutOfRange is MySQL error 1690 ("BIGINT value is out of range"),
// raised for counter arithmetic that leaves the signed 64-bit range.
const erDataOutOfRange = 1690

type MySQL struct{}

var _ dialect.Dialect = MySQL{}

func New() MySQL { return MySQL{} }

// Open opens a MySQL connection pool after validating the DSN.
func Open(dsn string) (*sql.DB, error) {
	if _, err := drv.ParseDSN(dsn); err != nil {
		return nil, err
	}
	return sql.Open("mysql", dsn)
}

func q(ident string) string { return "`" + ident + "`" }

func (MySQL) Name() string { return "mysql" }

func (MySQL) CreateTable(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	%s VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL PRIMARY KEY,
	value LONGBLOB NOT NULL,
	value_type CHAR(1) CHARACTER SET latin1 COLLATE latin1_bin NOT NULL,
	expires BIGINT NOT NULL,
	KEY %s (expires)
) ENGINE=InnoDB`, q(table), q("key"), q("idx_"+table+"_expires"))}
}

func (MySQL) DropTable(table string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s`, q(table))
}

func (MySQL) Get(table string) string {
	return fmt.Sprintf("SELECT value, value_type FROM %s WHERE %s = ? AND expires > ?",
		q(table), q("key"))
}

func (MySQL) GetMany(table string, n int) string {
	return fmt.Sprintf("SELECT %s, value, value_type FROM %s WHERE %s IN (%s) AND expires > ?",
		q("key"), q(table), q("key"), dialect.Marks(n))
}

func (MySQL) Set(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (%s, value, value_type, expires) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	value = VALUES(value),
	value_type = VALUES(value_type),
	expires = VALUES(expires)`, q(table), q("key"))
}

func (MySQL) SetMany(table string, n int) string {
	return fmt.Sprintf(`INSERT INTO %s (%s, value, value_type, expires) VALUES %s
ON DUPLICATE KEY UPDATE
	value = VALUES(value),
	value_type = VALUES(value_type),
	expires = VALUES(expires)`, q(table), q("key"), dialect.MarkRows(4, n))
}

// Add keeps the existing columns when the row is still live (expires > now)
// and takes the inserted values otherwise. The @now user variable is
// assigned once in the first IF and reused, so the statement sees a single
// consistent now. A live row leaves every column unchanged, which surfaces
// as RowsAffected == 0.
func (MySQL) Add(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (%s, value, value_type, expires) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	value = IF(expires > @now := ?, value, VALUES(value)),
	value_type = IF(expires > @now, value_type, VALUES(value_type)),
	expires = IF(expires > @now, expires, VALUES(expires))`, q(table), q("key"))
}

func (MySQL) Delete(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", q(table), q("key"))
}

func (MySQL) DeleteMany(table string, n int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", q(table), q("key"), dialect.Marks(n))
}

func (MySQL) Has(table string) string {
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? AND expires > ?", q(table), q("key"))
}

// Incr captures the post-update value in a connection-local user variable;
// MySQL has no UPDATE ... RETURNING, so the engine reads @newval back on
// the same pooled connection via IncrResult. Assigning the integer result
// back into the BLOB column stores its decimal text.
//
// The driver reports changed rows, not matched rows, so RowsAffected == 0
// means the row is missing, expired, or not integer-tagged only when the
// delta is nonzero; the engine resolves a zero delta with a plain read and
// never executes this statement for it. Add relies on the same changed-rows
// reporting, so ClientFoundRows must stay off.
func (MySQL) Incr(table string) string {
	return fmt.Sprintf(`UPDATE %s
SET value = @newval := (CAST(value AS SIGNED) + ?)
WHERE %s = ? AND value_type = 'i' AND expires > ?`, q(table), q("key"))
}

func (MySQL) IncrResult() string { return "SELECT @newval" }

func (MySQL) ValueType(table string) string {
	return fmt.Sprintf("SELECT value_type FROM %s WHERE %s = ? AND expires > ?", q(table), q("key"))
}

func (MySQL) DeleteExpired(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE expires <= ?", q(table))
}

func (MySQL) Count(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", q(table))
}

func (MySQL) DeleteExcess(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (SELECT %s FROM (SELECT %s FROM %s ORDER BY %s LIMIT ?) AS culled)",
		q(table), q("key"), q("key"), q("key"), q(table), q("key"))
}

func (MySQL) Clear(table string) string {
	return fmt.Sprintf("DELETE FROM %s", q(table))
}

func (MySQL) IsOverflow(err error) bool {
	var me *drv.MySQLError
	return errors.As(err, &me) && me.Number == erDataOutOfRange
}
