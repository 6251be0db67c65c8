package session

import (
	"context"
	"time"
)

// Backend stores sessions. Put replaces the stored session wholesale; the
// Manager serializes writers per session so backends never need
// compare-and-swap semantics.
type Backend interface {
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores the session and refreshes its idle deadline.
	Put(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting a missing session is not an
	// error.
	Delete(ctx context.Context, id string) error

	// DeleteIdle removes sessions not updated since the cutoff and
	// returns how many were removed. Backends with native expiry may
	// return 0 without scanning.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
