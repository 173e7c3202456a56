package batchload

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrClosed is returned for requests made after the owning scope (or the loader) closed.
	ErrClosed = errors.New("batchload: loader closed")

	// ErrResultCount reports a positional fetch that broke its length contract.
	ErrResultCount = errors.New("batchload: result count does not match key count")
)

// FetchError is delivered to every request of a window whose fetch failed.
type FetchError struct {
	Loader string
	Batch  string // short hash of the window's key set
	Keys   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("batchload: %s: fetch of %d keys (batch %s) failed: %v", e.Loader, e.Keys, e.Batch, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking fetch.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic during fetch: %v", e.Value)
}

// KeyErrors lets a fetch fail individual keys. Keys without an entry resolve
// normally from the returned map.
type KeyErrors[K comparable] map[K]error

func (e KeyErrors[K]) Error() string {
	parts := make([]string, 0, len(e))
	for k, err := range e {
		parts = append(parts, fmt.Sprintf("%v: %v", k, err))
	}
	sort.Strings(parts)
	return fmt.Sprintf("batchload: %d keys failed: %s", len(e), strings.Join(parts, "; "))
}

func (e KeyErrors[K]) Unwrap() []error {
	errs := make([]error, 0, len(e))
	for _, err := range e {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
