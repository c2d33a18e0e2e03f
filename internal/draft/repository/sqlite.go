package repository

import (
	"context"
	"database/sql"
	"errors"

	"reportdesk/server/internal/draft/domain"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a draft repository that uses the given db for persistence.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID returns the draft for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*domain.Draft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, ciphertext, iv, salt, tag, created_at, updated_at FROM drafts WHERE id = ?`, id)
	var d domain.Draft
	err := row.Scan(&d.ID, &d.UserID, &d.Ciphertext, &d.IV, &d.Salt, &d.Tag, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// Create persists the draft. The draft must have ID set.
func (r *SQLiteRepository) Create(ctx context.Context, d *domain.Draft) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (id, user_id, ciphertext, iv, salt, tag, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Ciphertext, d.IV, d.Salt, d.Tag, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
	return err
}

// Update replaces the envelope fields for an existing draft.
func (r *SQLiteRepository) Update(ctx context.Context, d *domain.Draft) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE drafts SET ciphertext = ?, iv = ?, salt = ?, tag = ?, updated_at = ? WHERE id = ?`,
		d.Ciphertext, d.IV, d.Salt, d.Tag, d.UpdatedAt.UTC(), d.ID)
	return err
}
