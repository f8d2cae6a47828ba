package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf is a Serializer for proto.Message values. New must return a fresh
// concrete message for Unmarshal to decode into (e.g.
// func() proto.Message { return &mypb.User{} }). Marshal rejects values that
// are not proto messages, so use this serializer only for caches that store
// a single message type.
type Protobuf struct {
	New func() proto.Message
}

var _ Serializer = Protobuf{}

func (s Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf serializer: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

func (s Protobuf) Unmarshal(b []byte) (any, error) {
	if s.New == nil {
		return nil, fmt.Errorf("protobuf serializer: New constructor is required")
	}
	m := s.New()
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}
