package ratelimit

import (
	"context"
	"time"
)

// Store is the shared counter store a Limiter records traffic in. Each key
// holds a time-ordered set of entry timestamps; implementations must be safe
// for concurrent use. Nothing here is transactional across calls: the
// prune/count/record sequence the Limiter runs is deliberately not atomic
// (see Limiter docs for the adopted race semantics).
type Store interface {
	// PruneAndCount removes all entries for key recorded strictly before
	// floor and returns how many remain.
	PruneAndCount(ctx context.Context, key string, floor time.Time) (int64, error)

	// CountSince returns the number of entries for key recorded at or after
	// floor without removing anything. Used by read-only usage queries.
	CountSince(ctx context.Context, key string, floor time.Time) (int64, error)

	// Record appends an entry for key stamped at and refreshes the key's
	// expiry to ttl so idle keys self-clean from the store.
	Record(ctx context.Context, key string, at time.Time, ttl time.Duration) error

	// Clear deletes all state for the given keys.
	Clear(ctx context.Context, keys ...string) error

	// Close releases the store's resources.
	Close() error
}
