package repository

import (
	"context"
	"database/sql"

	"reportdesk/server/internal/audit/domain"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns an audit log repository that uses the given db for persistence.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *SQLiteRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, action, resource, ip, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt.UTC())
	return err
}
