package batchload

import (
	"context"
	"fmt"
	"time"
)

// GroupOptions tune a grouping loader. Name, Fetch and KeyOf are required.
type GroupOptions[K comparable, R any] struct {
	// Required
	Name  string
	Fetch func(ctx context.Context, keys []K) ([]R, error) // all rows for the batch's keys
	KeyOf func(R) K                                        // foreign key of a row

	Scope        *Scope
	Wait         time.Duration
	MaxBatch     int
	Logger       Logger
	Hooks        Hooks
	DisableCache bool
}

// groupLoader runs the point engine with []R values and guarantees non-nil results.
type groupLoader[K comparable, R any] struct {
	l *loader[K, []R]
}

var _ GroupLoader[string, int] = (*groupLoader[string, int])(nil)

// NewGroup builds a loader for one-to-many relationships.
func NewGroup[K comparable, R any](opts GroupOptions[K, R]) (GroupLoader[K, R], error) {
	if opts.Fetch == nil {
		return nil, fmt.Errorf("batchload: fetch is required")
	}
	if opts.KeyOf == nil {
		return nil, fmt.Errorf("batchload: key func is required")
	}
	l, err := newLoader(Options[K, []R]{
		Name:         opts.Name,
		Fetch:        Grouped(opts.Fetch, opts.KeyOf),
		Scope:        opts.Scope,
		Wait:         opts.Wait,
		MaxBatch:     opts.MaxBatch,
		Logger:       opts.Logger,
		Hooks:        opts.Hooks,
		DisableCache: opts.DisableCache,
	})
	if err != nil {
		return nil, err
	}
	return &groupLoader[K, R]{l: l}, nil
}

func (g *groupLoader[K, R]) Load(ctx context.Context, key K) ([]R, error) {
	rows, _, err := g.l.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

func (g *groupLoader[K, R]) LoadThunk(key K) func() ([]R, error) {
	thunk := g.l.LoadThunk(key)
	return func() ([]R, error) {
		rows, _, err := thunk()
		if err != nil {
			return nil, err
		}
		return nonNil(rows), nil
	}
}

func (g *groupLoader[K, R]) LoadMany(ctx context.Context, keys []K) (map[K][]R, error) {
	values, missing, err := g.l.LoadMany(ctx, keys)
	for _, k := range missing {
		values[k] = []R{}
	}
	for k, rows := range values {
		values[k] = nonNil(rows)
	}
	return values, err
}

func (g *groupLoader[K, R]) Prime(key K, rows []R) bool { return g.l.Prime(key, nonNil(rows)) }
func (g *groupLoader[K, R]) Clear(key K)                { g.l.Clear(key) }
func (g *groupLoader[K, R]) ClearAll()                  { g.l.ClearAll() }
func (g *groupLoader[K, R]) Flush()                     { g.l.Flush() }
func (g *groupLoader[K, R]) Stats() Stats               { return g.l.Stats() }
func (g *groupLoader[K, R]) Close()                     { g.l.Close() }

func nonNil[R any](rows []R) []R {
	if rows == nil {
		return []R{}
	}
	return rows
}
