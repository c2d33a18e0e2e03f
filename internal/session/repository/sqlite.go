package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"reportdesk/server/internal/session/domain"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a session repository that uses the given db for persistence.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, role, login_time, last_activity, absolute_expires_at, ip_address
		 FROM sessions WHERE id = ?`, id)
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Username, &s.Role, &s.LoginTime, &s.LastActivity, &s.AbsoluteExpiresAt, &s.IPAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Create persists the session. The session must have ID set.
func (r *SQLiteRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, username, role, login_time, last_activity, absolute_expires_at, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Username, s.Role, s.LoginTime.UTC(), s.LastActivity.UTC(), s.AbsoluteExpiresAt.UTC(), s.IPAddress)
	return err
}

// Delete removes the session with the given id. Missing rows are not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteAllForUser removes every session for userID and returns how many went away.
func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLastActivity sets the session's last-activity timestamp for the given id.
func (r *SQLiteRepository) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// DeleteExpired removes sessions idle before idleCutoff or past absolute expiry at now.
func (r *SQLiteRepository) DeleteExpired(ctx context.Context, idleCutoff, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE last_activity < ? OR absolute_expires_at <= ?`,
		idleCutoff.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
