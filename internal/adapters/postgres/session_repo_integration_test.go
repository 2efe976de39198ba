//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/plaza/internal/adapters/postgres"
	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/pkg/config"
)

func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("plaza-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestSessionRepo_GetByToken(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgres.NewSessionRepo(db)

	userID := uuid.NewString()
	token := uuid.NewString()
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name) VALUES ($1, $2, $3)`,
		userID, userID+"@example.com", "Tester"); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})
	if _, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("insert session: %v", err)
	}

	s, u, err := repo.GetByToken(ctx, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != userID || u.ID != userID || u.DisplayName != "Tester" {
		t.Errorf("unexpected session/user: %+v %+v", s, u)
	}

	if _, _, err := repo.GetByToken(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
