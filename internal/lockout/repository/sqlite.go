package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"reportdesk/server/internal/lockout/domain"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns an attempt store that uses the given db for persistence.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append persists the login attempt. The attempt must have ID set.
func (r *SQLiteRepository) Append(ctx context.Context, a *domain.LoginAttempt) error {
	var lockedUntil any
	if a.LockedUntil != nil {
		lockedUntil = a.LockedUntil.UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (id, username, success, reason, source_ip, locked_until, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.Success, a.Reason, a.SourceIP, lockedUntil, a.CreatedAt.UTC())
	return err
}

// ActiveLockout returns the latest locked_until for username still in the
// future at now, or nil when the account is not locked. It returns an error
// only for database failures.
func (r *SQLiteRepository) ActiveLockout(ctx context.Context, username string, now time.Time) (*time.Time, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT locked_until FROM login_attempts
		 WHERE username = ? AND locked_until IS NOT NULL AND locked_until > ?
		 ORDER BY locked_until DESC LIMIT 1`,
		username, now.UTC())
	var until time.Time
	if err := row.Scan(&until); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &until, nil
}
