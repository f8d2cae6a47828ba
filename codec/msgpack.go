package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is a Serializer backed by vmihailenco/msgpack/v5. The zero value
// is ready to use and is the default serializer.
//
// Msgpack is compact and fast; be mindful of struct tag differences vs JSON.
// Use `msgpack:"fieldName"` tags if you need explicit control. Structs
// decode back as map[string]any since the stored payload carries no Go type.
type Msgpack struct{}

func (Msgpack) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack) Unmarshal(b []byte) (any, error) {
	var v any
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
