package ports

import (
	"context"
	"time"
)

// InFlightTracker marks download jobs that were published but not yet
// completed. It only reduces duplicate publishing; jobs stay idempotent.
type InFlightTracker interface {
	// Mark records key and reports whether it was not already marked.
	Mark(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, key string) error
}

// Leaser grants short-lived exclusive leases, used to keep a single crawl per
// repository root in flight.
type Leaser interface {
	// Acquire returns ok=false without error when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
