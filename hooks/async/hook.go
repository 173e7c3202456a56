// Package asynchook moves hook delivery off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker, 1000 queued events
//	defer hooks.Close()
//
//	scope := batchload.NewScope(ctx, batchload.ScopeOptions{Hooks: hooks})
//
// Events are dropped when the queue is full. Dropped() reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/batchload"
)

type Hooks struct {
	inner   batchload.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ batchload.Hooks = (*Hooks)(nil)

func New(inner batchload.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = batchload.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close: send on closed channel
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(l string)  { h.try(func() { h.inner.CacheHit(l) }) }
func (h *Hooks) CacheMiss(l string) { h.try(func() { h.inner.CacheMiss(l) }) }
func (h *Hooks) BatchDispatched(l string, n int, reason string) {
	h.try(func() { h.inner.BatchDispatched(l, n, reason) })
}
func (h *Hooks) BatchDone(l string, n int, took time.Duration, err error) {
	h.try(func() { h.inner.BatchDone(l, n, took, err) })
}
func (h *Hooks) FetchPanic(l string, v any) { h.try(func() { h.inner.FetchPanic(l, v) }) }
func (h *Hooks) PrimeRejected(l string)     { h.try(func() { h.inner.PrimeRejected(l) }) }
func (h *Hooks) Misuse(l string, op string) { h.try(func() { h.inner.Misuse(l, op) }) }
