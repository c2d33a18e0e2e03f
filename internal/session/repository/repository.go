package repository

import (
	"context"
	"time"

	"reportdesk/server/internal/session/domain"
)

// Repository defines the durable mirror of the in-memory session registry.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	UpdateLastActivity(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes sessions idle since before idleCutoff or past
	// their absolute expiry at now, returning how many rows went away.
	DeleteExpired(ctx context.Context, idleCutoff, now time.Time) (int64, error)
}
