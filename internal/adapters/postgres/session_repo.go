package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/plaza/internal/core/domain"
)

// SessionRepo implements ports.SessionRepository with pgx.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// GetByToken returns the session for token together with its user.
// Expiry is not checked here.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	var (
		s domain.Session
		u domain.User
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT s.token, s.user_id, s.expires_at,
		       u.id, u.email, COALESCE(u.display_name, ''), u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1
	`, token).Scan(
		&s.Token, &s.UserID, &s.ExpiresAt,
		&u.ID, &u.Email, &u.DisplayName, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	return &s, &u, nil
}
