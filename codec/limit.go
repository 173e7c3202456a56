package codec

import "fmt"

// Limit rejects payloads larger than Max bytes before Inner sees them.
// Backing stores shared with other services are not trusted to stay small.
// Max <= 0 disables the check. Encode is not limited.
type Limit[V any] struct {
	Inner Codec[V]
	Max   int
}

func (c Limit[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit[V]) Decode(b []byte) (V, error) {
	if c.Max > 0 && len(b) > c.Max {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(b), c.Max)
	}
	return c.Inner.Decode(b)
}
