// Package kv loads rows that live in a key/value store, one bulk read per batch.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/batchload"
	"github.com/unkn0wn-root/batchload/codec"
	"github.com/unkn0wn-root/batchload/provider"
)

type Options[K comparable, V any] struct {
	Provider provider.Provider
	Codec    codec.Codec[V]
	// Key maps an entity key to its storage key, e.g. "product:" + id.
	// Distinct entity keys must map to distinct storage keys.
	Key func(K) string
	TTL time.Duration // used by Put; 0 = no expiry
}

// Source reads (and, for the owning service, writes) rows of one entity.
type Source[K comparable, V any] struct {
	p     provider.Provider
	codec codec.Codec[V]
	key   func(K) string
	ttl   time.Duration
}

func New[K comparable, V any](opts Options[K, V]) (*Source[K, V], error) {
	if opts.Provider == nil {
		return nil, errors.New("kv: provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("kv: codec is required")
	}
	if opts.Key == nil {
		return nil, errors.New("kv: key func is required")
	}
	return &Source[K, V]{p: opts.Provider, codec: opts.Codec, key: opts.Key, ttl: opts.TTL}, nil
}

// Fetch is a batchload.FetchFunc. A store error fails the batch; a payload that
// does not decode fails only its own key.
func (s *Source[K, V]) Fetch(ctx context.Context, keys []K) (map[K]V, error) {
	skeys := make([]string, len(keys))
	for i, k := range keys {
		skeys[i] = s.key(k)
	}
	raw, err := provider.GetMany(ctx, s.p, skeys)
	if err != nil {
		return nil, fmt.Errorf("kv: read %d keys: %w", len(keys), err)
	}

	out := make(map[K]V, len(raw))
	var bad batchload.KeyErrors[K]
	for i, k := range keys {
		b, ok := raw[skeys[i]]
		if !ok {
			continue
		}
		v, err := s.codec.Decode(b)
		if err != nil {
			if bad == nil {
				bad = make(batchload.KeyErrors[K])
			}
			bad[k] = fmt.Errorf("kv: decode %s: %w", skeys[i], err)
			continue
		}
		out[k] = v
	}
	if bad != nil {
		return out, bad
	}
	return out, nil
}

// Put stores v under k. Loaders that already cached k keep the old value until cleared.
func (s *Source[K, V]) Put(ctx context.Context, k K, v V) error {
	b, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", s.key(k), err)
	}
	ok, err := s.p.Set(ctx, s.key(k), b, int64(len(b)), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("kv: store rejected %s", s.key(k))
	}
	return nil
}

func (s *Source[K, V]) Delete(ctx context.Context, k K) error {
	return s.p.Del(ctx, s.key(k))
}
