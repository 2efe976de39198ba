package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/core/ports"
)

// AuthService resolves bearer tokens to users.
type AuthService struct {
	sessions ports.SessionRepository
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(sessions ports.SessionRepository) *AuthService {
	return &AuthService{sessions: sessions, now: time.Now}
}

// Authenticate returns the user owning token. Empty, unknown and expired
// tokens all yield domain.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	session, user, err := s.sessions.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
