package sqlcache

import (
	"math"
	"testing"
	"time"
)

func TestAbsoluteExpiry(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	base := now.UnixMilli()

	cases := []struct {
		name string
		ttl  time.Duration
		want int64
	}{
		{"positive", time.Minute, base + 60_000},
		{"sub-millisecond", time.Microsecond, base},
		{"zero is already expired", 0, base},
		{"negative is already expired", -time.Hour, base},
		{"no expiry", NoExpiry, farFuture},
		{"max real duration", time.Duration(math.MaxInt64 - 1), base + (math.MaxInt64-1)/int64(time.Millisecond)},
	}
	for _, tc := range cases {
		if got := absoluteExpiry(tc.ttl, now); got != tc.want {
			t.Errorf("%s: absoluteExpiry(%v) = %d, want %d", tc.name, tc.ttl, got, tc.want)
		}
	}
}
