package repository

import (
	"context"
	"time"

	"reportdesk/server/internal/lockout/domain"
)

// AttemptStore defines persistence for login attempts. Attempts are
// append-only; the tracker reads back only active lockouts.
type AttemptStore interface {
	Append(ctx context.Context, a *domain.LoginAttempt) error
	// ActiveLockout returns the latest locked_until for username that is still
	// in the future at now, or nil if the account is not locked.
	ActiveLockout(ctx context.Context, username string, now time.Time) (*time.Time, error)
}
