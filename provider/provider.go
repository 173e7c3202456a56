// Package provider abstracts the key/value stores that rows can be loaded from.
//
// A provider is a backing store, not a request cache: loaders read through it once
// per batch and never write to it. Writers (the services owning the rows) use Set
// and Del. Values are opaque bytes produced by a codec.Codec.
package provider

import (
	"context"
	"time"
)

// Provider is a byte store safe for concurrent use.
// Get must return exactly the bytes stored by Set.
type Provider interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. cost and ttl are hints; stores ignore what they cannot honour.
	// ok=false means the store dropped the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	Del(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// MultiGetter is implemented by stores that can read many keys in one round trip.
// Missing keys are absent from the result.
type MultiGetter interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
}

// GetMany reads keys through p, using a single round trip when p supports it.
func GetMany(ctx context.Context, p Provider, keys []string) (map[string][]byte, error) {
	if mg, ok := p.(MultiGetter); ok {
		return mg.GetMany(ctx, keys)
	}
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		b, ok, err := p.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = b
		}
	}
	return out, nil
}
