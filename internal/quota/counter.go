// Package quota defines the per-day provider call budget port. Counters are
// keyed by UTC calendar date; a new date implicitly starts at zero.
package quota

import "context"

// Counter tracks calls against a third-party API's daily budget.
type Counter interface {
	// Incr records one call for the given day and returns the new count.
	Incr(ctx context.Context, day string) (int64, error)
	// Get returns the count for the given day; zero when no calls were made.
	Get(ctx context.Context, day string) (int64, error)
}
