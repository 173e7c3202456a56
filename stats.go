package batchload

// Stats is a point-in-time view of one loader. Reading it has no effect on the loader.
type Stats struct {
	Loader string
	Scope  string // scope id; empty for standalone loaders

	// occupancy
	Entries  int // cached keys, settled or in flight
	Settled  int
	InFlight int
	Pending  int // keys queued in the open window

	// counters since creation
	Hits        uint64
	Misses      uint64
	Batches     uint64
	FetchErrors uint64
	Primed      uint64
}

// Sum folds several loader stats into one, e.g. for a whole scope.
// Loader and Scope are taken from the first element.
func Sum(stats []Stats) Stats {
	var out Stats
	for i, s := range stats {
		if i == 0 {
			out.Loader, out.Scope = s.Loader, s.Scope
		}
		out.Entries += s.Entries
		out.Settled += s.Settled
		out.InFlight += s.InFlight
		out.Pending += s.Pending
		out.Hits += s.Hits
		out.Misses += s.Misses
		out.Batches += s.Batches
		out.FetchErrors += s.FetchErrors
		out.Primed += s.Primed
	}
	return out
}
