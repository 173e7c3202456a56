package batchload

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// SearchOptions tune a fuzzy search loader. Name and Search are required.
//
// Terms cannot share one bulk query, so each distinct term of a window gets its
// own Search call. Identical terms requested in the same window share that call.
type SearchOptions[R any] struct {
	// Required
	Name   string
	Search func(ctx context.Context, term string) ([]R, error)

	Scope  *Scope
	Logger Logger
	Hooks  Hooks

	Concurrency  int           // parallel Search calls per window; 0 => 4
	Wait         time.Duration // 0 => 10ms (scope Wait is not inherited)
	MaxBatch     int           // distinct terms per window; 0 => 10
	DisableCache bool          // default false
}

// NewSearch builds a loader whose keys are free-text terms.
func NewSearch[R any](opts SearchOptions[R]) (GroupLoader[string, R], error) {
	if opts.Search == nil {
		return nil, fmt.Errorf("batchload: search func is required")
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("batchload: %s: concurrency must not be negative", opts.Name)
	}
	l, err := newLoader(Options[string, []R]{
		Name:         opts.Name,
		Fetch:        searchEach(opts.Search, coalesce(opts.Concurrency, defaultSearchConcurrency)),
		Scope:        opts.Scope,
		Wait:         coalesce(opts.Wait, defaultSearchWait),
		MaxBatch:     coalesce(opts.MaxBatch, defaultSearchMaxBatch),
		Logger:       opts.Logger,
		Hooks:        opts.Hooks,
		DisableCache: opts.DisableCache,
	})
	if err != nil {
		return nil, err
	}
	return &groupLoader[string, R]{l: l}, nil
}

// searchEach fans a window of terms out to one search call per term.
// A failing term is reported through KeyErrors and does not fail its neighbours.
func searchEach[R any](search func(ctx context.Context, term string) ([]R, error), concurrency int) FetchFunc[string, []R] {
	return func(ctx context.Context, terms []string) (map[string][]R, error) {
		results := make([][]R, len(terms))
		errs := make([]error, len(terms))

		var g errgroup.Group
		g.SetLimit(concurrency)
		for i, term := range terms {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						errs[i] = &PanicError{Value: r}
					}
				}()
				rows, err := search(ctx, term)
				if err != nil {
					errs[i] = err
					return nil
				}
				results[i] = nonNil(rows)
				return nil
			})
		}
		_ = g.Wait() // per-term errors are collected in errs

		out := make(map[string][]R, len(terms))
		var failed KeyErrors[string]
		for i, term := range terms {
			if errs[i] != nil {
				if failed == nil {
					failed = make(KeyErrors[string])
				}
				failed[term] = errs[i]
				continue
			}
			out[term] = results[i]
		}
		if failed != nil {
			return out, failed
		}
		return out, nil
	}
}
