package batchload

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ScopeOptions are defaults for every loader created in the scope.
type ScopeOptions struct {
	Logger   Logger        // if nil, NopLogger is used
	Hooks    Hooks         // if nil, NopHooks is used
	Wait     time.Duration // 0 => package default
	MaxBatch int           // 0 => package default
}

// member is what a Scope needs from its loaders.
type member interface {
	Flush()
	Close()
	Stats() Stats
}

// Scope is the cache scope of one logical request. Create it when the request
// starts, build loaders with Options.Scope set, and Close it when the request ends.
// Scopes are never shared between requests.
type Scope struct {
	id       string
	ctx      context.Context
	log      Logger
	hooks    Hooks
	wait     time.Duration
	maxBatch int

	mu      sync.Mutex
	members []member
	closed  bool
}

// NewScope starts a scope. ctx is passed to every fetch run by the scope's loaders,
// so cancelling it cancels their outstanding fetches.
func NewScope(ctx context.Context, opts ScopeOptions) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scope{
		id:       uuid.NewString(),
		ctx:      ctx,
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
		wait:     opts.Wait,
		maxBatch: opts.MaxBatch,
	}
}

func (s *Scope) ID() string               { return s.id }
func (s *Scope) Context() context.Context { return s.ctx }

func (s *Scope) register(m member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.members = append(s.members, m)
	return nil
}

func (s *Scope) snapshot() []member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]member(nil), s.members...)
}

// Flush closes the open window of every loader in the scope. Call it once the
// request has issued all the loads it can issue without waiting.
func (s *Scope) Flush() {
	for _, m := range s.snapshot() {
		m.Flush()
	}
}

// Close ends the scope: open windows are dispatched, caches are dropped and any
// later request on the scope's loaders fails with ErrClosed. Safe to call twice.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	members := s.members
	s.members = nil
	s.mu.Unlock()

	var total Stats
	if len(members) > 0 {
		stats := make([]Stats, len(members))
		for i, m := range members {
			stats[i] = m.Stats()
			m.Close()
		}
		total = Sum(stats)
	}
	s.log.Debug("scope closed", Fields{
		"scope": s.id, "loaders": len(members), "batches": total.Batches, "hits": total.Hits, "misses": total.Misses,
	})
}

func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Stats returns one entry per loader, in creation order.
func (s *Scope) Stats() []Stats {
	members := s.snapshot()
	out := make([]Stats, len(members))
	for i, m := range members {
		out[i] = m.Stats()
	}
	return out
}

type scopeKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope stored by NewContext.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}
