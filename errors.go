package sqlcache

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Incr/Decr when no live row matches.
	ErrKeyNotFound = errors.New("sqlcache: key not found")

	// ErrNotCounter is returned by Incr/Decr when the stored row does not
	// carry the integer type tag.
	ErrNotCounter = errors.New("sqlcache: stored value is not a counter")

	// ErrCounterOverflow is returned when a counter would leave the signed
	// 64-bit range.
	ErrCounterOverflow = errors.New("sqlcache: counter out of int64 range")

	// ErrInvalidKey is returned for empty, oversized, or control-character
	// keys before any statement runs.
	ErrInvalidKey = errors.New("sqlcache: invalid key")
)

// CorruptRecordError reports a stored row whose payload can no longer be
// decoded for its type tag. The engine surfaces it unchanged and leaves the
// row in place; it does not attempt recovery.
type CorruptRecordError struct {
	Key string
	Tag byte
	Err error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("sqlcache: corrupt record %q (tag %q): %v", e.Key, string(e.Tag), e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }
