package codec

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

const (
	// DefaultCompressMinLength is the serialized size at which payloads are
	// compressed and tagged TagCompressed.
	DefaultCompressMinLength = 5000

	// DefaultCompressLevel is the zlib level for compressed payloads. The
	// zlib stream is self-describing, so previously written rows stay
	// decodable whatever level produced them.
	DefaultCompressLevel = 6
)

// Options tune the default codec. Zero values mean defaults.
type Options struct {
	Serializer Serializer // nil => Msgpack{}

	CompressMinLength  int // 0 => DefaultCompressMinLength
	CompressLevel      int // 0 => DefaultCompressLevel
	DisableCompression bool

	// Extensions maps upper-case tags to handlers. Extensions get first
	// shot at Encode (in tag order) before the reserved-tag behavior, and
	// own Decode for their tag. Changing extensions only affects future
	// writes; reserved-tag rows always decode through the base behavior.
	Extensions map[byte]Extension
}

// Default is the engine's record codec: integers as decimal text under
// TagInt, everything else serialized under TagPlain, or compressed under
// TagCompressed once the serialized form reaches the threshold.
type Default struct {
	ser      Serializer
	minLen   int
	level    int
	compress bool
	exts     map[byte]Extension
	extOrder []byte
}

var _ Codec = (*Default)(nil)

func New(opts Options) (*Default, error) {
	c := &Default{
		ser:      opts.Serializer,
		minLen:   opts.CompressMinLength,
		level:    opts.CompressLevel,
		compress: !opts.DisableCompression,
	}
	if c.ser == nil {
		c.ser = Msgpack{}
	}
	if c.minLen == 0 {
		c.minLen = DefaultCompressMinLength
	}
	if c.level == 0 {
		c.level = DefaultCompressLevel
	}
	if c.compress {
		// surface an invalid level at construction, not on first write
		if _, err := zlib.NewWriterLevel(io.Discard, c.level); err != nil {
			return nil, fmt.Errorf("codec: %w", err)
		}
	}
	if len(opts.Extensions) > 0 {
		c.exts = make(map[byte]Extension, len(opts.Extensions))
		for tag, ext := range opts.Extensions {
			if tag < 'A' || tag > 'Z' {
				return nil, fmt.Errorf("codec: extension tag %q outside upper-case namespace", string(tag))
			}
			if ext == nil {
				return nil, fmt.Errorf("codec: nil extension for tag %q", string(tag))
			}
			c.exts[tag] = ext
			c.extOrder = append(c.extOrder, tag)
		}
		sort.Slice(c.extOrder, func(i, j int) bool { return c.extOrder[i] < c.extOrder[j] })
	}
	return c, nil
}

// Must is like New but panics on error. Handy for package-level variables.
func Must(opts Options) *Default {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Default) Encode(v any) ([]byte, byte, error) {
	// extensions run first so they can claim values before the base rules
	for _, tag := range c.extOrder {
		b, ok, err := c.exts[tag].Encode(v)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			return b, tag, nil
		}
	}

	if n, ok, err := asInt64(v); err != nil {
		return nil, 0, err
	} else if ok {
		return strconv.AppendInt(nil, n, 10), TagInt, nil
	}

	b, err := c.ser.Marshal(v)
	if err != nil {
		return nil, 0, err
	}
	if c.compress && len(b) >= c.minLen {
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, c.level)
		if err != nil {
			return nil, 0, err
		}
		if _, err := zw.Write(b); err != nil {
			return nil, 0, err
		}
		if err := zw.Close(); err != nil {
			return nil, 0, err
		}
		return buf.Bytes(), TagCompressed, nil
	}
	return b, TagPlain, nil
}

func (c *Default) Decode(payload []byte, tag byte) (any, error) {
	switch tag {
	case TagInt:
		n, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad integer payload: %v", ErrCorrupt, err)
		}
		return n, nil
	case TagPlain:
		return c.ser.Unmarshal(payload)
	case TagCompressed:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		b, err := io.ReadAll(zr)
		if cerr := zr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return c.ser.Unmarshal(b)
	}
	if ext, ok := c.exts[tag]; ok {
		return ext.Decode(payload)
	}
	return nil, &UnknownTagError{Tag: tag}
}

// asInt64 reports whether v is an integer the counter protocol can store.
// Unsigned values past MaxInt64 are a range error, not a silent wrap.
func asInt64(v any) (int64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int8:
		return int64(n), true, nil
	case int16:
		return int64(n), true, nil
	case int32:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case uint8:
		return int64(n), true, nil
	case uint16:
		return int64(n), true, nil
	case uint32:
		return int64(n), true, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false, fmt.Errorf("%w: %d", ErrIntegerRange, n)
		}
		return int64(n), true, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, false, fmt.Errorf("%w: %d", ErrIntegerRange, n)
		}
		return int64(n), true, nil
	}
	return 0, false, nil
}
