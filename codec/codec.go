// Package codec converts application values to and from the stored
// (payload bytes, type tag) pair.
//
// Lower-case tags are reserved by the engine: 'i' (integer, decimal text),
// 'p' (serialized object), 'z' (compressed serialized object). Upper-case
// tags are free for extensions registered on the default codec; an unknown
// lower-case tag on decode is a corrupt record.
package codec

import (
	"errors"
	"fmt"
)

// Reserved type tags. The datastore evaluates counter arithmetic directly
// on TagInt payloads, so integers are never serialized.
const (
	TagInt        byte = 'i'
	TagPlain      byte = 'p'
	TagCompressed byte = 'z'
)

// Codec encodes/decodes values to (payload, tag) pairs for storage.
// Encode must never produce a pair that Decode cannot parse back.
type Codec interface {
	Encode(v any) (payload []byte, tag byte, err error)
	Decode(payload []byte, tag byte) (any, error)
}

// Extension handles one upper-case tag on the default codec. Encode reports
// ok=false to pass on values it does not own.
type Extension interface {
	Encode(v any) (payload []byte, ok bool, err error)
	Decode(payload []byte) (any, error)
}

var (
	// ErrCorrupt marks payloads or tags that cannot be decoded.
	ErrCorrupt = errors.New("sqlcache: corrupt record")

	// ErrIntegerRange is returned when an integer value does not fit the
	// signed 64-bit range the counter protocol is defined on.
	ErrIntegerRange = errors.New("sqlcache: integer outside int64 range")
)

// UnknownTagError is returned on decode for a tag with no handler. A
// lower-case tag is a reserved-namespace violation and matches ErrCorrupt
// via errors.Is; an upper-case tag simply has no registered extension.
type UnknownTagError struct {
	Tag byte
}

func (e *UnknownTagError) Error() string {
	if e.Reserved() {
		return fmt.Sprintf("unknown reserved type tag %q", string(e.Tag))
	}
	return fmt.Sprintf("no extension registered for type tag %q", string(e.Tag))
}

// Reserved reports whether the tag falls in the engine-owned namespace.
func (e *UnknownTagError) Reserved() bool { return e.Tag < 'A' || e.Tag > 'Z' }

func (e *UnknownTagError) Is(target error) bool {
	return target == ErrCorrupt && e.Reserved()
}
