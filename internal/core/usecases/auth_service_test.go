package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/usecases"
)

func TestAuthService_Authenticate(t *testing.T) {
	repo := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
			switch token {
			case "valid":
				return &domain.Session{UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)},
					&domain.User{ID: "u1", Email: "ane@example.com"}, nil
			case "expired":
				return &domain.Session{UserID: "u2", ExpiresAt: time.Now().Add(-time.Minute)},
					&domain.User{ID: "u2"}, nil
			case "broken":
				return nil, nil, errors.New("connection reset")
			}
			return nil, nil, domain.ErrNotFound
		},
	}
	svc := usecases.NewAuthService(repo)

	user, err := svc.Authenticate(context.Background(), "valid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("expected u1, got %s", user.ID)
	}

	for _, token := range []string{"", "unknown", "expired"} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}

	_, err = svc.Authenticate(context.Background(), "broken")
	if err == nil || errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected storage error to pass through, got %v", err)
	}
}
