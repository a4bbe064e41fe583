package attempt

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps failures of the backing store.
var ErrUnavailable = errors.New("attempt store unavailable")

// Store persists attempt timestamps per key. Implementations must be safe for
// concurrent use, and every mutating method must be atomic for its key across
// all processes sharing the store.
type Store interface {
	// Get returns the stored timestamps in ascending order, or nil when absent or expired.
	Get(ctx context.Context, key string) ([]time.Time, error)
	// Put replaces the timestamps for key and sets its lifetime to ttl.
	Put(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error
	// Append drops timestamps at or before cutoff, adds stamp, keeps only the
	// newest keep entries and sets the lifetime to ttl. It returns the
	// resulting record.
	Append(ctx context.Context, key string, stamp, cutoff time.Time, keep int, ttl time.Duration) ([]time.Time, error)
	// Reserve drops timestamps at or before cutoff and adds stamp only when
	// fewer than limit remain. It returns the resulting record and whether
	// stamp was added.
	Reserve(ctx context.Context, key string, stamp, cutoff time.Time, limit int, ttl time.Duration) ([]time.Time, bool, error)
	// Prune drops timestamps at or before cutoff and returns what is left.
	Prune(ctx context.Context, key string, cutoff time.Time) ([]time.Time, error)
	// Remove drops one occurrence of stamp. A missing stamp is not an error.
	Remove(ctx context.Context, key string, stamp time.Time) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// TTL reports the remaining lifetime of key, zero when absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// pruneBefore drops ascending stamps at or before cutoff.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
