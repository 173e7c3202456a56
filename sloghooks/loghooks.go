// Package sloghooks reports loader events through log/slog.
//
// Per-request events (hits, misses, dispatches) are sampled; failures are always logged.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/batchload"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery      uint64
	MissEvery     uint64
	DispatchEvery uint64
	// Batches slower than this are logged at Warn. 0 disables.
	SlowBatch time.Duration
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr      atomic.Uint64
	missCtr     atomic.Uint64
	dispatchCtr atomic.Uint64
}

var _ batchload.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) CacheHit(loader string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("batchload.cache_hit", "loader", loader)
}

func (h *Hooks) CacheMiss(loader string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("batchload.cache_miss", "loader", loader)
}

func (h *Hooks) BatchDispatched(loader string, keys int, reason string) {
	if h.l == nil || !sample(h.opts.DispatchEvery, &h.dispatchCtr) {
		return
	}
	h.l.Debug("batchload.batch_dispatched",
		"loader", loader,
		"keys", keys,
		"reason", reason)
}

func (h *Hooks) BatchDone(loader string, keys int, took time.Duration, err error) {
	if h.l == nil {
		return
	}
	switch {
	case err != nil:
		h.l.Warn("batchload.batch_failed",
			"loader", loader,
			"keys", keys,
			"took", took,
			"err", err)
	case h.opts.SlowBatch > 0 && took >= h.opts.SlowBatch:
		h.l.Warn("batchload.batch_slow",
			"loader", loader,
			"keys", keys,
			"took", took)
	}
}

func (h *Hooks) FetchPanic(loader string, v any) {
	if h.l == nil {
		return
	}
	h.l.Error("batchload.fetch_panic",
		"loader", loader,
		"panic", v)
}

func (h *Hooks) PrimeRejected(loader string) {
	if h.l == nil {
		return
	}
	h.l.Debug("batchload.prime_rejected", "loader", loader)
}

func (h *Hooks) Misuse(loader string, op string) {
	if h.l == nil {
		return
	}
	h.l.Warn("batchload.closed_loader_used",
		"loader", loader,
		"op", op)
}
