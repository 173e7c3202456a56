package batchload

import (
	"context"
	"time"
)

// FetchFunc is the bulk-fetch collaborator of a point loader. It receives the
// de-duplicated keys of one window in first-seen order and returns the values it found.
// Keys missing from the map resolve as not found. It must be a pure read.
type FetchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk blocks until the requested key is resolved.
// ok=false with a nil error means the key was not found.
type Thunk[V any] func() (v V, ok bool, err error)

// Loader is a batching, per-key caching point loader.
// Instances belong to one request scope and must not be shared across requests.
type Loader[K comparable, V any] interface {
	// Load waits for key. ctx bounds the wait only; the key stays enqueued.
	Load(ctx context.Context, key K) (v V, ok bool, err error)
	LoadThunk(key K) Thunk[V]

	// LoadMany returns found values, keys that were not found, and the joined
	// errors of keys whose fetch failed.
	LoadMany(ctx context.Context, keys []K) (values map[K]V, missing []K, err error)

	// Prime seeds key with v unless an entry (in-flight or settled) exists.
	Prime(key K, v V) bool
	Clear(key K)
	ClearAll()

	// Flush closes the open window now instead of waiting for Options.Wait.
	Flush()
	Stats() Stats
	Close()
}

// GroupLoader resolves a key to an ordered collection. Keys without rows
// resolve to an empty, non-nil slice.
type GroupLoader[K comparable, R any] interface {
	Load(ctx context.Context, key K) ([]R, error)
	LoadThunk(key K) func() ([]R, error)
	LoadMany(ctx context.Context, keys []K) (map[K][]R, error)

	Prime(key K, rows []R) bool
	Clear(key K)
	ClearAll()

	Flush()
	Stats() Stats
	Close()
}

// Options tune a point loader. Only Name and Fetch are required.
// Zero values fall back to the Scope's defaults, then to package defaults.
type Options[K comparable, V any] struct {
	// Required
	Name  string // e.g. "product.byID"; used in logs, hooks and stats
	Fetch FetchFunc[K, V]

	Scope        *Scope        // owning request scope; nil => standalone loader
	Wait         time.Duration // coalescing window; 0 => 2ms
	MaxBatch     int           // max keys per fetch; 0 => 100
	Logger       Logger        // nil => scope logger or NopLogger
	Hooks        Hooks         // nil => scope hooks or NopHooks
	DisableCache bool          // default false; still de-duplicates within a window
}

// New builds a point loader. When opts.Scope is set the loader registers with it
// and uses the scope context for its fetches.
func New[K comparable, V any](opts Options[K, V]) (Loader[K, V], error) {
	return newLoader(opts)
}
