// Package dialect defines the statement-builder abstraction used by sqlcache.
//
// A Dialect produces the single SQL statement for each cache operation in
// one backend's syntax. The engine binds arguments in a fixed order per
// operation (documented on each method), so a dialect only chooses syntax -
// placeholder style, upsert form, how the new counter value is read back.
//
// Required backend capabilities: atomic upsert on primary-key conflict,
// atomic conditional insert, atomic in-place numeric update, and multi-row
// insert in one statement. A backend without these cannot honor the cache's
// concurrency model and must not be wired in via a Dialect.
package dialect

import (
	"strconv"
	"strings"
)

// Dialect builds the statements for one backend. Implementations must be
// stateless and safe for concurrent use. The table identifier is validated
// by the engine ([A-Za-z0-9_]+) before it reaches the dialect.
type Dialect interface {
	Name() string

	// Schema. CreateTable returns one or more statements (table + index);
	// DropTable returns the matching teardown statement.
	CreateTable(table string) []string
	DropTable(table string) string

	// Get selects value, value_type for a live key. Args: key, now.
	Get(table string) string
	// GetMany selects key, value, value_type for live keys. Args: keys..., now.
	GetMany(table string, n int) string
	// Set upserts one row, overwriting on key conflict.
	// Args: key, value, value_type, expires.
	Set(table string) string
	// SetMany upserts n rows in one statement.
	// Args: (key, value, value_type, expires) per row.
	SetMany(table string, n int) string
	// Add inserts unless a live row exists; an expired row is overwritten.
	// RowsAffected == 0 means a live row won. Args: key, value, value_type,
	// expires, now.
	Add(table string) string
	// Delete removes one row. Args: key.
	Delete(table string) string
	// DeleteMany removes n rows. Args: keys...
	DeleteMany(table string, n int) string
	// Has checks for a live row. Args: key, now. One row on hit, none on miss.
	Has(table string) string

	// Incr atomically adds delta to a live integer-tagged row.
	// Args: delta, key, now. When IncrResult returns "", the statement
	// itself returns the new value (RETURNING); otherwise the engine runs
	// IncrResult on the same pooled connection to read it back.
	Incr(table string) string
	IncrResult() string
	// ValueType reads the type tag of a live row, used only to classify a
	// failed counter update. Args: key, now.
	ValueType(table string) string

	// Cull statements. DeleteExpired args: now. DeleteExcess args: n
	// (row count to remove, ascending key order).
	DeleteExpired(table string) string
	Count(table string) string
	DeleteExcess(table string) string
	Clear(table string) string

	// IsOverflow reports whether err is the backend's integer out-of-range
	// error for counter arithmetic.
	IsOverflow(err error) bool
}

// Marks returns n comma-separated "?" placeholders.
func Marks(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// MarkRows returns n comma-separated "(?,...)" tuples of the given width.
func MarkRows(width, n int) string {
	row := "(" + Marks(width) + ")"
	var b strings.Builder
	b.Grow(n * (len(row) + 1))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(row)
	}
	return b.String()
}

// Numbered returns n comma-separated numbered placeholders starting at
// $start.
func Numbered(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}

// NumberedRows returns n tuples of numbered placeholders of the given
// width, starting at $start.
func NumberedRows(width, n, start int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(Numbered(start+i*width, width))
		b.WriteByte(')')
	}
	return b.String()
}
