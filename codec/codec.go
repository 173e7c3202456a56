// Package codec turns the byte payloads of key/value backing stores into rows.
// source/kv pairs a codec with a provider to build a bulk fetch.
package codec

import "errors"

// ErrTooLarge is returned by Limit when a payload exceeds its cap.
var ErrTooLarge = errors.New("codec: payload too large")

// Codec encodes rows for storage and decodes them on read.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
