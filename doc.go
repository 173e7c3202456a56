// Package batchload implements a request-scoped batching loader. Concurrent point and
// grouped lookups are coalesced into a small number of bulk fetches against a backing
// store, settled results are cached for the lifetime of one logical request, and every
// caller receives its own result demultiplexed by key identity.
//
// Components:
//   - Loader[K, V]: point lookups (one nullable value per key).
//   - GroupLoader[K, R]: one-to-many lookups (ordered rows per foreign key, never nil).
//   - Search loader: one sub-fetch per distinct term, identical terms share one fetch.
//   - Entity: a per-entity set of the above (ByID, ByField, Search, relations).
//   - Scope: owns the loaders of one request; Close ends the cache scope.
//
// Windows:
//
//	first uncached key  -> opens a window, arms a flush after Options.Wait
//	MaxBatch keys queued -> window closes now, next key opens a new one
//	Flush()             -> closes the open window immediately
//
// Typical request flow:
//
//	scope := batchload.NewScope(r.Context(), batchload.ScopeOptions{})
//	defer scope.Close()
//	users, _ := batchload.New(batchload.Options[int64, *User]{
//	    Name:  "user.byID",
//	    Scope: scope,
//	    Fetch: batchload.Keyed(fetchUsers, func(u *User) int64 { return u.ID }),
//	})
//	u, ok, err := users.Load(ctx, 42)
//
// A fetch that never returns stalls every request of its window; wrap it with
// WithTimeout when bounded latency is required.
package batchload
