package domain

import (
	"errors"
	"time"
)

// User is the core user entity. PasswordHash is a bcrypt hash; plaintext
// passwords never reach persistence.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role string

const (
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleAuthor
	}
	return nil
}
