package batchload

import (
	"context"
	"fmt"
	"time"
)

// Keyed adapts a row query to a FetchFunc. Rows are matched to keys through keyOf,
// so the query may return rows in any order and may omit keys.
// If two rows share a key the first one wins.
func Keyed[K comparable, R any](fetch func(ctx context.Context, keys []K) ([]R, error), keyOf func(R) K) FetchFunc[K, R] {
	return func(ctx context.Context, keys []K) (map[K]R, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[K]R, len(rows))
		for _, r := range rows {
			k := keyOf(r)
			if _, dup := out[k]; !dup {
				out[k] = r
			}
		}
		return out, nil
	}
}

// Ordered adapts a positional query: result i belongs to keys[i] and nil means not found.
// A result slice of the wrong length fails the whole batch with ErrResultCount.
func Ordered[K comparable, T any](fetch func(ctx context.Context, keys []K) ([]*T, error)) FetchFunc[K, *T] {
	return func(ctx context.Context, keys []K) (map[K]*T, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		if len(rows) != len(keys) {
			return nil, fmt.Errorf("%w: %d results for %d keys", ErrResultCount, len(rows), len(keys))
		}
		out := make(map[K]*T, len(keys))
		for i, r := range rows {
			if r != nil {
				out[keys[i]] = r
			}
		}
		return out, nil
	}
}

// Grouped adapts a one-to-many query. Every requested key gets a non-nil slice with
// its rows in query order; rows whose key was not requested are dropped.
func Grouped[K comparable, R any](fetch func(ctx context.Context, keys []K) ([]R, error), keyOf func(R) K) FetchFunc[K, []R] {
	return func(ctx context.Context, keys []K) (map[K][]R, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[K][]R, len(keys))
		for _, k := range keys {
			out[k] = []R{}
		}
		for _, r := range rows {
			k := keyOf(r)
			if g, ok := out[k]; ok {
				out[k] = append(g, r)
			}
		}
		return out, nil
	}
}

// WithTimeout bounds a fetch to d. The fetch gets a context with the deadline; if it
// ignores it, the batch still fails with context.DeadlineExceeded after d and the
// late result is discarded. d <= 0 returns fetch unchanged.
func WithTimeout[K comparable, V any](fetch FetchFunc[K, V], d time.Duration) FetchFunc[K, V] {
	if d <= 0 {
		return fetch
	}
	type result struct {
		values map[K]V
		err    error
	}
	return func(ctx context.Context, keys []K) (map[K]V, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		ch := make(chan result, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					ch <- result{err: &PanicError{Value: r}}
				}
			}()
			v, err := fetch(ctx, keys)
			ch <- result{values: v, err: err}
		}()

		select {
		case res := <-ch:
			return res.values, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
