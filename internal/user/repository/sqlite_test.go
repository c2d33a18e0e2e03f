package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"reportdesk/server/internal/db"
	"reportdesk/server/internal/db/migrate"
	"reportdesk/server/internal/user/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reportdesk.db")
	if err := migrate.Run(path, "up"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSQLiteRepository(conn)
}

func seedUser(t *testing.T, repo *SQLiteRepository, id, username string) *domain.User {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	u := &domain.User{
		ID:           id,
		Username:     username,
		PasswordHash: "$2a$10$fixture-hash",
		Role:         domain.RoleAuthor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	return u
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	want := seedUser(t, repo, "u1", "demo")

	byID, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.Username != want.Username || byID.Role != domain.RoleAuthor {
		t.Errorf("GetByID = %+v", byID)
	}

	byName, err := repo.GetByUsername(ctx, "demo")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName == nil || byName.ID != "u1" {
		t.Errorf("GetByUsername = %+v", byName)
	}
}

func TestSQLiteRepository_MissingRowIsNilNil(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.GetByID(ctx, "nope")
	if err != nil || u != nil {
		t.Errorf("GetByID missing = (%+v, %v), want (nil, nil)", u, err)
	}
	u, err = repo.GetByUsername(ctx, "nope")
	if err != nil || u != nil {
		t.Errorf("GetByUsername missing = (%+v, %v), want (nil, nil)", u, err)
	}
}

func TestSQLiteRepository_DuplicateUsernameRejected(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo, "u1", "demo")

	dup := &domain.User{
		ID:           "u2",
		Username:     "demo",
		PasswordHash: "$2a$10$other-hash",
		Role:         domain.RoleAuthor,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), dup); err == nil {
		t.Error("duplicate username should violate the unique constraint")
	}
}

func TestSQLiteRepository_UpdatePasswordHash(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "u1", "demo")

	if err := repo.UpdatePasswordHash(ctx, "u1", "$2a$10$rotated-hash"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PasswordHash != "$2a$10$rotated-hash" {
		t.Errorf("password_hash = %q, want rotated hash", got.PasswordHash)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("updated_at should advance past created_at on password rotation")
	}
}
