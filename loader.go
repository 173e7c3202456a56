package batchload

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/batchload/internal/util"
)

// entry is a shared future. done is closed exactly once, after v/ok/err are set.
type entry[V any] struct {
	done chan struct{}
	v    V
	ok   bool
	err  error
}

func newEntry[V any]() *entry[V] {
	return &entry[V]{done: make(chan struct{})}
}

func settledEntry[V any](v V, ok bool, err error) *entry[V] {
	e := &entry[V]{done: make(chan struct{}), v: v, ok: ok, err: err}
	close(e.done)
	return e
}

func (e *entry[V]) settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *entry[V]) wait(ctx context.Context) (V, bool, error) {
	select {
	case <-e.done:
		return e.v, e.ok, e.err
	default:
	}
	select {
	case <-e.done:
		return e.v, e.ok, e.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

func (e *entry[V]) thunk() Thunk[V] {
	return func() (V, bool, error) {
		<-e.done
		return e.v, e.ok, e.err
	}
}

// window is the set of keys queued since the last dispatch.
// A window is open iff it is the loader's current window.
type window[K comparable, V any] struct {
	keys    []K
	entries map[K]*entry[V]
	timer   *time.Timer
}

type loader[K comparable, V any] struct {
	name     string
	fetch    FetchFunc[K, V]
	wait     time.Duration
	maxBatch int
	log      Logger
	hooks    Hooks
	ctx      context.Context
	scopeID  string
	cacheOn  bool

	mu     sync.Mutex
	closed bool
	cache  map[K]*entry[V]
	open   *window[K, V]

	hits        atomic.Uint64
	misses      atomic.Uint64
	batches     atomic.Uint64
	fetchErrors atomic.Uint64
	primed      atomic.Uint64
}

var _ Loader[string, int] = (*loader[string, int])(nil)

func newLoader[K comparable, V any](opts Options[K, V]) (*loader[K, V], error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("batchload: name is required")
	}
	if opts.Fetch == nil {
		return nil, fmt.Errorf("batchload: fetch is required")
	}
	if opts.MaxBatch < 0 {
		return nil, fmt.Errorf("batchload: %s: max batch must not be negative", opts.Name)
	}

	l := &loader[K, V]{
		name:    opts.Name,
		fetch:   opts.Fetch,
		cacheOn: !opts.DisableCache,
		cache:   make(map[K]*entry[V]),
		ctx:     context.Background(),
	}

	// scope defaults sit between loader options and package defaults
	var (
		scopeLog   Logger
		scopeHooks Hooks
		scopeWait  time.Duration
		scopeMax   int
	)
	if s := opts.Scope; s != nil {
		scopeLog, scopeHooks = s.log, s.hooks
		scopeWait, scopeMax = s.wait, s.maxBatch
		l.ctx = s.ctx
		l.scopeID = s.id
	}

	l.log = coalesce[Logger](opts.Logger, coalesce[Logger](scopeLog, NopLogger{}))
	l.hooks = coalesce[Hooks](opts.Hooks, coalesce[Hooks](scopeHooks, NopHooks{}))
	l.wait = coalesce(opts.Wait, coalesce(scopeWait, defaultWait))
	l.maxBatch = coalesce(opts.MaxBatch, coalesce(scopeMax, defaultMaxBatch))

	if opts.Scope != nil {
		if err := opts.Scope.register(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *loader[K, V]) Load(ctx context.Context, key K) (V, bool, error) {
	return l.request(key).wait(ctx)
}

func (l *loader[K, V]) LoadThunk(key K) Thunk[V] {
	return l.request(key).thunk()
}

func (l *loader[K, V]) LoadMany(ctx context.Context, keys []K) (map[K]V, []K, error) {
	values := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return values, nil, nil
	}

	// enqueue everything first so the keys share windows
	entries := make([]*entry[V], len(keys))
	for i, k := range keys {
		entries[i] = l.request(k)
	}

	var (
		missing []K
		errs    []error
	)
	seen := make(map[K]struct{}, len(keys))
	for i, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		v, ok, err := entries[i].wait(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return values, missing, ctxErr
			}
			if !containsErr(errs, err) {
				errs = append(errs, err)
			}
			continue
		}
		if !ok {
			missing = append(missing, k)
			continue
		}
		values[k] = v
	}
	return values, missing, errors.Join(errs...)
}

func (l *loader[K, V]) Prime(key K, v V) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.hooks.Misuse(l.name, "prime")
		return false
	}
	if !l.cacheOn {
		l.mu.Unlock()
		return false
	}
	if _, exists := l.cache[key]; exists {
		l.mu.Unlock()
		l.hooks.PrimeRejected(l.name)
		return false
	}
	l.cache[key] = settledEntry(v, true, nil)
	l.mu.Unlock()

	l.primed.Add(1)
	return true
}

func (l *loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

func (l *loader[K, V]) ClearAll() {
	l.mu.Lock()
	l.cache = make(map[K]*entry[V])
	l.mu.Unlock()
}

func (l *loader[K, V]) Flush() {
	l.mu.Lock()
	w := l.detachLocked()
	l.mu.Unlock()
	if w != nil {
		go l.run(w, ReasonFlush)
	}
}

// Close rejects further requests with ErrClosed and drops the cache.
// An open window is still dispatched so its callers get an answer.
func (l *loader[K, V]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	w := l.detachLocked()
	l.cache = make(map[K]*entry[V])
	l.mu.Unlock()

	if w != nil {
		go l.run(w, ReasonClose)
	}
}

func (l *loader[K, V]) Stats() Stats {
	s := Stats{Loader: l.name, Scope: l.scopeID}

	l.mu.Lock()
	s.Entries = len(l.cache)
	for _, e := range l.cache {
		if e.settled() {
			s.Settled++
		} else {
			s.InFlight++
		}
	}
	if l.open != nil {
		s.Pending = len(l.open.keys)
	}
	l.mu.Unlock()

	s.Hits = l.hits.Load()
	s.Misses = l.misses.Load()
	s.Batches = l.batches.Load()
	s.FetchErrors = l.fetchErrors.Load()
	s.Primed = l.primed.Load()
	return s
}

func (l *loader[K, V]) request(key K) *entry[V] {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.hooks.Misuse(l.name, "load")
		var zero V
		return settledEntry(zero, false, ErrClosed)
	}

	if l.cacheOn {
		if e, ok := l.cache[key]; ok {
			l.mu.Unlock()
			l.hit()
			return e
		}
	}

	w := l.open
	if w == nil {
		w = &window[K, V]{entries: make(map[K]*entry[V])}
		w.timer = time.AfterFunc(l.wait, func() { l.expire(w) })
		l.open = w
	}

	// the key was cleared while its window is still open
	if e, ok := w.entries[key]; ok {
		if l.cacheOn {
			l.cache[key] = e
		}
		l.mu.Unlock()
		l.hit()
		return e
	}

	e := newEntry[V]()
	w.keys = append(w.keys, key)
	w.entries[key] = e
	if l.cacheOn {
		l.cache[key] = e
	}

	var full *window[K, V]
	if len(w.keys) >= l.maxBatch {
		full = l.detachLocked()
	}
	l.mu.Unlock()

	l.misses.Add(1)
	l.hooks.CacheMiss(l.name)
	if full != nil {
		go l.run(full, ReasonFull)
	}
	return e
}

func (l *loader[K, V]) hit() {
	l.hits.Add(1)
	l.hooks.CacheHit(l.name)
}

// detachLocked closes the open window and returns it, or nil if none is open.
// Caller holds l.mu.
func (l *loader[K, V]) detachLocked() *window[K, V] {
	w := l.open
	if w == nil {
		return nil
	}
	l.open = nil
	w.timer.Stop()
	return w
}

// expire is the timer callback of w.
func (l *loader[K, V]) expire(w *window[K, V]) {
	l.mu.Lock()
	if l.open != w {
		// already dispatched by full/flush/close
		l.mu.Unlock()
		return
	}
	l.detachLocked()
	l.mu.Unlock()
	l.run(w, ReasonTimer)
}

// run performs the fetch of a closed window and resolves all of its entries.
func (l *loader[K, V]) run(w *window[K, V], reason string) {
	n := len(w.keys)
	batch := l.batchID(w.keys)
	l.batches.Add(1)
	l.hooks.BatchDispatched(l.name, n, reason)
	l.log.Debug("dispatching batch", Fields{
		"loader": l.name, "scope": l.scopeID, "batch": batch, "keys": n, "reason": reason,
	})

	start := time.Now()
	values, err := l.safeFetch(append([]K(nil), w.keys...))
	l.hooks.BatchDone(l.name, n, time.Since(start), err)

	var keyErrs KeyErrors[K]
	perKey := errors.As(err, &keyErrs)
	if err != nil {
		l.fetchErrors.Add(1)
		l.log.Warn("batch fetch failed", Fields{
			"loader": l.name, "scope": l.scopeID, "batch": batch, "keys": n, "err": err,
		})
	}

	var failed []K
	for _, k := range w.keys {
		e := w.entries[k]
		switch {
		case err != nil && !perKey:
			e.err = &FetchError{Loader: l.name, Batch: batch, Keys: n, Err: err}
		case perKey && keyErrs[k] != nil:
			e.err = &FetchError{Loader: l.name, Batch: batch, Keys: n, Err: keyErrs[k]}
		default:
			e.v, e.ok = values[k]
		}
		if e.err != nil {
			failed = append(failed, k)
		}
	}

	// failures are never cached: evict before resolving so a retry opens a new window
	if len(failed) > 0 && l.cacheOn {
		l.mu.Lock()
		for _, k := range failed {
			if l.cache[k] == w.entries[k] {
				delete(l.cache, k)
			}
		}
		l.mu.Unlock()
	}

	for _, k := range w.keys {
		close(w.entries[k].done)
	}
}

func (l *loader[K, V]) safeFetch(keys []K) (values map[K]V, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.hooks.FetchPanic(l.name, r)
			values, err = nil, &PanicError{Value: r}
		}
	}()
	return l.fetch(l.ctx, keys)
}

func (l *loader[K, V]) batchID(keys []K) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = fmt.Sprint(k)
	}
	return util.BatchKey(l.name, s)
}

func containsErr(errs []error, err error) bool {
	for _, e := range errs {
		if e == err {
			return true
		}
	}
	return false
}
