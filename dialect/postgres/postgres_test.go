package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestStatementShapes(t *testing.T) {
	d := New()
	const table = "cache_entries"

	if got := d.Get(table); !strings.Contains(got, "expires > $2") ||
		!strings.Contains(got, `"cache_entries"`) {
		t.Errorf("Get: %q", got)
	}

	// keys take $1..$n, now takes $n+1
	if got := d.GetMany(table, 3); !strings.Contains(got, "IN ($1,$2,$3)") ||
		!strings.Contains(got, "expires > $4") {
		t.Errorf("GetMany(3): %q", got)
	}

	if got := d.Set(table); !strings.Contains(got, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("Set: %q", got)
	}
	if got := d.SetMany(table, 2); !strings.Contains(got, "($1,$2,$3,$4),($5,$6,$7,$8)") {
		t.Errorf("SetMany(2): %q", got)
	}

	// conditional insert yields to live rows via the conflict-update filter
	if got := d.Add(table); !strings.Contains(got, `"cache_entries".expires <= $5`) {
		t.Errorf("Add: %q", got)
	}

	if got := d.Incr(table); !strings.Contains(got, "RETURNING") ||
		!strings.Contains(got, "value_type = 'i'") {
		t.Errorf("Incr: %q", got)
	}
	if got := d.IncrResult(); got != "" {
		t.Errorf("IncrResult should be empty for a RETURNING dialect, got %q", got)
	}

	if got := d.DeleteExcess(table); !strings.Contains(got, "ORDER BY key LIMIT $1") {
		t.Errorf("DeleteExcess: %q", got)
	}
}

func TestIsOverflow(t *testing.T) {
	d := New()

	overflow := &pgconn.PgError{Code: "22003", Message: "bigint out of range"}
	if !d.IsOverflow(overflow) {
		t.Errorf("IsOverflow(22003) = false")
	}
	if !d.IsOverflow(fmt.Errorf("exec: %w", overflow)) {
		t.Errorf("IsOverflow does not unwrap")
	}
	if d.IsOverflow(&pgconn.PgError{Code: "23505", Message: "duplicate key"}) {
		t.Errorf("IsOverflow(23505) = true")
	}
	if d.IsOverflow(errors.New("numeric_value_out_of_range")) {
		t.Errorf("IsOverflow matched a plain error")
	}
}
