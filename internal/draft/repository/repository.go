package repository

import (
	"context"

	"reportdesk/server/internal/draft/domain"
)

// Repository defines persistence for encrypted drafts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Draft, error)
	Create(ctx context.Context, d *domain.Draft) error
	Update(ctx context.Context, d *domain.Draft) error
}
