// Package sessions declares the durable session store: one row per live
// refresh token, whose presence is the sole authority on token validity.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/models"
)

// Repository stores refresh sessions. Every infrastructure failure is
// reported wrapped in common.ErrStoreUnavailable.
type Repository interface {
	// Create inserts a fresh session for id living ttl and returns it. The
	// identity's email and role are stored on the row so a rotation can
	// reissue the same access claims.
	Create(ctx context.Context, id models.Identity, ttl time.Duration) (*models.Session, error)

	// ConsumeIfPresent deletes the unexpired row matching sessionID and
	// userID in one conditional statement and returns the deleted row, or
	// nil when none matched. Of any number of concurrent callers at most one
	// gets a row.
	ConsumeIfPresent(ctx context.Context, sessionID, userID string, now time.Time) (*models.Session, error)

	// DeleteAll removes every session of userID and returns how many.
	DeleteAll(ctx context.Context, userID string) (int64, error)

	// Delete removes one session. Deleting an absent row is not an error.
	Delete(ctx context.Context, sessionID, userID string) error

	// DeleteExpired purges rows whose expiry is not after now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// CountActive returns the number of unexpired sessions of userID.
	CountActive(ctx context.Context, userID string, now time.Time) (int, error)
}
