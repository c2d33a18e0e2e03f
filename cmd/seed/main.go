// seed inserts development sample users for local testing.
// Idempotent: skips inserts if the dev author (demo) already exists.
package main

import (
	"context"
	"log"
	"time"

	"reportdesk/server/internal/config"
	"reportdesk/server/internal/db"
	"reportdesk/server/internal/db/migrate"
	"reportdesk/server/internal/security"
	"reportdesk/server/internal/user/domain"
	userrepo "reportdesk/server/internal/user/repository"
)

const (
	devAuthorID       = "dev-user-001"
	devAuthorName     = "demo"
	devAuthorPassword = "password123"
	devAdminID        = "dev-user-002"
	devAdminName      = "admin"
	devAdminPassword  = "admin123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := migrate.Run(cfg.DatabasePath, "up"); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := userrepo.NewSQLiteRepository(conn)

	existing, err := repo.GetByUsername(ctx, devAuthorName)
	if err != nil {
		log.Fatalf("seed: lookup %s: %v", devAuthorName, err)
	}
	if existing != nil {
		log.Printf("seed: user %s already exists, nothing to do", devAuthorName)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	now := time.Now().UTC()
	users := []struct {
		id, username, password string
		role                   domain.Role
	}{
		{devAuthorID, devAuthorName, devAuthorPassword, domain.RoleAuthor},
		{devAdminID, devAdminName, devAdminPassword, domain.RoleAdmin},
	}
	for _, u := range users {
		hash, err := hasher.Hash([]byte(u.password))
		if err != nil {
			log.Fatalf("seed: hash password for %s: %v", u.username, err)
		}
		user := &domain.User{
			ID:           u.id,
			Username:     u.username,
			PasswordHash: hash,
			Role:         u.role,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := user.Validate(); err != nil {
			log.Fatalf("seed: validate %s: %v", u.username, err)
		}
		if err := repo.Create(ctx, user); err != nil {
			log.Fatalf("seed: create %s: %v", u.username, err)
		}
		log.Printf("seed: created user %s (%s)", u.username, u.role)
	}
}
