package codec

import "google.golang.org/protobuf/proto"

// Protobuf stores generated protobuf messages. newMsg allocates the message
// each Decode fills, e.g. func() *pb.Product { return new(pb.Product) }.
type Protobuf[T proto.Message] struct {
	newMsg func() T
}

func NewProtobuf[T proto.Message](newMsg func() T) Protobuf[T] {
	return Protobuf[T]{newMsg: newMsg}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return proto.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.newMsg()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
