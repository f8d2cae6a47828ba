package sqlcache

import (
	"math"
	"time"
)

// NoExpiry marks an entry that never expires. It is a sentinel, not a real
// duration: the stored expiry becomes farFuture rather than now+NoExpiry.
const NoExpiry time.Duration = math.MaxInt64

// farFuture is the stored expiry instant for NoExpiry writes. Kept within
// the signed 64-bit range so every supported backend can index it.
const farFuture int64 = math.MaxInt64

// absoluteExpiry converts a relative ttl into an absolute millisecond
// instant. ttl <= 0 yields an instant that is already expired at write time
// (reads filter on expires > now), which callers use as an idempotent no-op
// write. Bulk operations compute all expiries from a single now reading.
func absoluteExpiry(ttl time.Duration, now time.Time) int64 {
	if ttl == NoExpiry {
		return farFuture
	}
	base := now.UnixMilli()
	if ttl <= 0 {
		return base
	}
	exp := base + ttl.Milliseconds()
	if exp < base { // overflow
		return farFuture
	}
	return exp
}
