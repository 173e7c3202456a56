package batchload

import "time"

const (
	defaultWait     = 2 * time.Millisecond
	defaultMaxBatch = 100

	defaultSearchWait        = 10 * time.Millisecond
	defaultSearchMaxBatch    = 10
	defaultSearchConcurrency = 4
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
