package repository

import (
	"context"

	"reportdesk/server/internal/user/domain"
)

// Repository defines persistence for users. It is the credential store the
// auth service reads hashes from; it never sees plaintext passwords.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}
