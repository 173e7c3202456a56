package batchload

import "time"

// Dispatch reasons passed to Hooks.BatchDispatched.
const (
	ReasonFull  = "full"  // window reached MaxBatch
	ReasonTimer = "timer" // Wait elapsed
	ReasonFlush = "flush" // explicit Flush
	ReasonClose = "close" // scope or loader closed with an open window
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: the loader calls them on the
// request path of every Load. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A request was answered from the cache (settled or in-flight entry).
	CacheHit(loader string)
	// A request entered a window.
	CacheMiss(loader string)

	// A window closed and its fetch is about to run.
	// reason ∈ {"full", "timer", "flush", "close"}
	BatchDispatched(loader string, keys int, reason string)
	// A fetch returned. err is nil on success.
	BatchDone(loader string, keys int, took time.Duration, err error)
	// The fetch panicked; the panic was turned into a FetchError.
	FetchPanic(loader string, v any)

	// Prime found an existing entry and did nothing.
	PrimeRejected(loader string)
	// A closed loader was used. op ∈ {"load", "prime"}
	Misuse(loader string, op string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CacheHit(string)                             {}
func (NopHooks) CacheMiss(string)                            {}
func (NopHooks) BatchDispatched(string, int, string)         {}
func (NopHooks) BatchDone(string, int, time.Duration, error) {}
func (NopHooks) FetchPanic(string, any)                      {}
func (NopHooks) PrimeRejected(string)                        {}
func (NopHooks) Misuse(string, string)                       {}
