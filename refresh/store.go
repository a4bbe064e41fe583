package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Lookup when no record matches the token.
	ErrNotFound = errors.New("refresh token not found")
	// ErrUnavailable wraps failures of the persistence backend.
	ErrUnavailable = errors.New("refresh store unavailable")
	// ErrExists is returned by Save when a record for the token already
	// exists. Saving never resets an existing record.
	ErrExists = errors.New("refresh token already stored")
)

// Record is the persisted state of one issued refresh token.
type Record struct {
	TokenHash string
	AccountID string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	RevokedAt time.Time
}

// Expired reports whether the record's lifetime ended at or before now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Usable reports whether the token is both unrevoked and unexpired.
func (r *Record) Usable(now time.Time) bool {
	return r != nil && !r.Revoked && !r.Expired(now)
}

// Store persists refresh-token records. Implementations own their consistency:
// Revoke must flip the revoked flag atomically so that exactly one concurrent
// caller observes true.
type Store interface {
	Save(ctx context.Context, token, accountID string, expiresAt time.Time) error
	// FindOwner returns the owning account only when the token is unrevoked and unexpired.
	FindOwner(ctx context.Context, token string) (string, bool, error)
	IsValid(ctx context.Context, token string) (bool, error)
	// Lookup returns the record regardless of state, or ErrNotFound.
	Lookup(ctx context.Context, token string) (*Record, error)
	// Revoke reports true only for the call that changed the token from usable to revoked.
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAll(ctx context.Context, accountID string) (int, error)
	// Sweep deletes expired records and records revoked before now-retention.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// HashToken returns the hex SHA-256 digest under which a token is stored.
// Raw token values are never persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
