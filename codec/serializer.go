package codec

// Serializer is the generic object-serialization format behind the 'p' and
// 'z' tags. Integers never pass through it.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte) (any, error)
}
